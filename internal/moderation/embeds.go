package moderation

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
)

// Embed accent colors per action kind.
const (
	colorWarning = 0xFFA500
	colorMute    = 0xE74C3C
	colorUnmute  = 0x2ECC71
	colorBan     = 0x992D22
	colorNote    = 0x3498DB
)

func mention(userID uint64) string {
	return fmt.Sprintf("<@%d>", userID)
}

// warningDMEmbed is the notification sent to a warned user.
func warningDMEmbed(guildName, reason string, activeCount, maxWarnings int) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("You have been warned").
		SetDescription(fmt.Sprintf("You received a warning in **%s**.", guildName)).
		SetColor(colorWarning).
		AddField("Reason", reason, false).
		AddField("Active Warnings", fmt.Sprintf("%d/%d", activeCount, maxWarnings), true).
		SetTimestamp(time.Now()).
		Build()
}

// warningLogEmbed is the audit-log post for an issued warning.
func warningLogEmbed(targetID, issuerID uint64, reason string, activeCount, maxWarnings int) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("Warning Issued").
		SetColor(colorWarning).
		AddField("User", mention(targetID), true).
		AddField("Moderator", mention(issuerID), true).
		AddField("Active Warnings", fmt.Sprintf("%d/%d", activeCount, maxWarnings), true).
		AddField("Reason", reason, false).
		SetTimestamp(time.Now()).
		Build()
}

// muteDMEmbed is the notification sent to a muted user.
func muteDMEmbed(guildName, reason string, durationHours int) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("You have been muted").
		SetDescription(fmt.Sprintf("You have been muted in **%s**.", guildName)).
		SetColor(colorMute).
		AddField("Reason", reason, false).
		AddField("Duration", formatHours(durationHours), true).
		SetTimestamp(time.Now()).
		Build()
}

// muteLogEmbed is the audit-log post for an applied mute.
func muteLogEmbed(targetID, issuerID uint64, reason string, durationHours int) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("User Muted").
		SetColor(colorMute).
		AddField("User", mention(targetID), true).
		AddField("Moderator", mention(issuerID), true).
		AddField("Duration", formatHours(durationHours), true).
		AddField("Reason", reason, false).
		SetTimestamp(time.Now()).
		Build()
}

// unmuteDMEmbed is the notification sent to an unmuted user.
func unmuteDMEmbed(guildName string) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("You have been unmuted").
		SetDescription(fmt.Sprintf("Your mute in **%s** has been lifted.", guildName)).
		SetColor(colorUnmute).
		SetTimestamp(time.Now()).
		Build()
}

// unmuteLogEmbed is the audit-log post for a lifted mute. The issuer is the
// bot itself when the mute expired on its own.
func unmuteLogEmbed(targetID, issuerID uint64, expired bool) discord.Embed {
	title := "User Unmuted"
	if expired {
		title = "Mute Expired"
	}

	return discord.NewEmbedBuilder().
		SetTitle(title).
		SetColor(colorUnmute).
		AddField("User", mention(targetID), true).
		AddField("Moderator", mention(issuerID), true).
		SetTimestamp(time.Now()).
		Build()
}

// banDMEmbed is the notification sent to a user about to be banned.
func banDMEmbed(guildName, reason string) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("You have been banned").
		SetDescription(fmt.Sprintf("You have been banned from **%s**.", guildName)).
		SetColor(colorBan).
		AddField("Reason", reason, false).
		SetTimestamp(time.Now()).
		Build()
}

// banLogEmbed is the audit-log post for a ban.
func banLogEmbed(targetID, issuerID uint64, reason string) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("User Banned").
		SetColor(colorBan).
		AddField("User", mention(targetID), true).
		AddField("Moderator", mention(issuerID), true).
		AddField("Reason", reason, false).
		SetTimestamp(time.Now()).
		Build()
}

// noteLogEmbed is the audit-log post for an added or removed note.
func noteLogEmbed(targetID, authorID uint64, content, action string) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("Note %s", action)).
		SetColor(colorNote).
		AddField("User", mention(targetID), true).
		AddField("Author", mention(authorID), true).
		AddField("Content", content, false).
		SetTimestamp(time.Now()).
		Build()
}

// formatHours renders a duration in hours as a compact human string.
func formatHours(hours int) string {
	if hours >= 24 && hours%24 == 0 {
		days := hours / 24
		if days == 1 {
			return "1 day"
		}

		return fmt.Sprintf("%d days", days)
	}

	if hours == 1 {
		return "1 hour"
	}

	return fmt.Sprintf("%d hours", hours)
}
