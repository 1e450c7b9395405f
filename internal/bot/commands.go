package bot

import "github.com/bwmarrin/discordgo"

const (
	cmdCommands     = "commands"
	cmdGetGame      = "getgame"
	cmdShowCurrent  = "showcurrent"
	cmdShowUpcoming = "showupcoming"
	cmdNextCheck    = "nextcheck"
	cmdConfirm      = "confirm"
	cmdShutdown     = "shutdown"
)

// Commands is the global slash command set, in help-menu order.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: cmdGetGame, Description: "Manually check for new free games"},
		{Name: cmdConfirm, Description: "Show games again if they haven't changed"},
		{Name: cmdShowCurrent, Description: "Display current free games"},
		{Name: cmdShowUpcoming, Description: "Display upcoming free games"},
		{Name: cmdNextCheck, Description: "Time until the next automatic check"},
		{Name: cmdCommands, Description: "Show all available commands"},
		{Name: cmdShutdown, Description: "Shut down the bot (owner only)"},
	}
}
