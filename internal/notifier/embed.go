package notifier

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/pauljones0/epic-free-games-bot/internal/models"
)

const (
	embedColor = 0x1E3A8A

	HeaderCurrent  = "**Current Free Games:**"
	HeaderUpcoming = "**Upcoming Free Games:**"

	noLink       = "No link"
	unknownStart = "Unknown start"
	dateLayout   = "2006-01-02"
)

// Renderer turns offers into Discord embeds, formatting dates in loc.
type Renderer struct {
	loc *time.Location
}

func NewRenderer(loc *time.Location) Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return Renderer{loc: loc}
}

// Embeds renders one card per offer. requester, when set, is credited in the footer.
func (r Renderer) Embeds(offers []models.Offer, upcoming bool, requester string) []*discordgo.MessageEmbed {
	embeds := make([]*discordgo.MessageEmbed, 0, len(offers))
	for _, o := range offers {
		embeds = append(embeds, r.Embed(o, upcoming, requester))
	}
	return embeds
}

func (r Renderer) Embed(o models.Offer, upcoming bool, requester string) *discordgo.MessageEmbed {
	link := o.StoreURL()
	if link == "" {
		link = noLink
	}

	embed := &discordgo.MessageEmbed{
		Title:       o.Title,
		Description: o.Description,
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Seller", Value: o.Seller, Inline: true},
			{Name: "Store Link", Value: link},
		},
	}
	if o.StoreURL() != "" {
		embed.URL = o.StoreURL()
	}

	if upcoming {
		value := unknownStart
		if !o.StartDate.IsZero() {
			value = o.StartDate.In(r.loc).Format(dateLayout)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Start Date", Value: value, Inline: true})
	} else if !o.EndDate.IsZero() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Available Until",
			Value:  o.EndDate.In(r.loc).Format(dateLayout),
			Inline: true,
		})
	}

	if o.ImageURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: o.ImageURL}
	}
	if requester != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Checked by " + requester}
	}
	return embed
}

// section is one header followed by its cards.
type section struct {
	header string
	embeds []*discordgo.MessageEmbed
}

// sections splits an announcement into the messages to post, skipping empty categories.
func (r Renderer) sections(a models.Announcement) []section {
	var out []section
	if len(a.Current) > 0 {
		out = append(out, section{HeaderCurrent, r.Embeds(a.Current, false, a.Requester)})
	}
	if len(a.Upcoming) > 0 {
		out = append(out, section{HeaderUpcoming, r.Embeds(a.Upcoming, true, a.Requester)})
	}
	return out
}
