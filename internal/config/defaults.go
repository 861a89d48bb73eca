package config

import (
	"time"

	"github.com/spf13/viper"
)

// Task names known to the scheduler.
const (
	TaskSQLMaintenance    = "sql_maintenance"
	TaskReputationRefresh = "reputation_refresh"
)

// setDefaults registers a default for every key so that environment
// variables can override keys that do not appear in the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_username", "")
	v.SetDefault("telegram.admin_chat_id", 0)

	v.SetDefault("database.path", "morebots.db")

	v.SetDefault("directory.refresh_interval_hours", 24)
	v.SetDefault("directory.new_item_window_days", 7)

	v.SetDefault("identity.base_url", "https://identity.service.toshi.org")
	v.SetDefault("identity.timeout", 15*time.Second)
	v.SetDefault("identity.requests_per_second", 5.0)
	v.SetDefault("identity.burst", 5)
	v.SetDefault("identity.batch_size", 50)
	v.SetDefault("identity.resilience.retry_attempts", 3)
	v.SetDefault("identity.resilience.retry_delay", 500*time.Millisecond)
	v.SetDefault("identity.resilience.breaker_failures", 5)
	v.SetDefault("identity.resilience.breaker_cooldown", 30*time.Second)

	v.SetDefault("fiat.base_url", "https://api.coinbase.com/v2/exchange-rates")
	v.SetDefault("fiat.timeout", 10*time.Second)
	v.SetDefault("fiat.resilience.retry_attempts", 2)
	v.SetDefault("fiat.resilience.retry_delay", 500*time.Millisecond)
	v.SetDefault("fiat.resilience.breaker_failures", 3)
	v.SetDefault("fiat.resilience.breaker_cooldown", time.Minute)

	v.SetDefault("payments.currency", "USD")
	v.SetDefault("payments.decimals", 2)
	v.SetDefault("payments.provider_token", "")
	v.SetDefault("payments.reference_currency", "USD")
	v.SetDefault("payments.reference_amount", 1.0)

	v.SetDefault("scheduler.tasks."+TaskSQLMaintenance+".enabled", true)
	v.SetDefault("scheduler.tasks."+TaskSQLMaintenance+".schedule", "0 30 4 * * *")
	v.SetDefault("scheduler.tasks."+TaskReputationRefresh+".enabled", false)
	v.SetDefault("scheduler.tasks."+TaskReputationRefresh+".schedule", "0 */15 * * * *")

	v.SetDefault("messages.welcome", "Welcome to MoreBots! A user maintained list of bots.")
	v.SetDefault("messages.list_header", "💡 Here is the list of all registered bots:")
	v.SetDefault("messages.list_empty", "No bots are listed yet. Be the first to add one!")
	v.SetDefault("messages.add_instructions", "Type the username of the bot you want to add, starting with @ (use the username, not the display name).")

	v.SetDefault("messages.does_not_exist_fmt", "%s does not exist.")
	v.SetDefault("messages.is_human_fmt", "%s is human!")
	v.SetDefault("messages.already_listed_fmt", "%s is already in the list.")
	v.SetDefault("messages.opted_out_fmt", "The owner of %s asked for it not to be listed.")
	v.SetDefault("messages.added_fmt", "%s was added to the list.")
	v.SetDefault("messages.username_conflict_fmt", "%s clashes with another listed bot. Please contact the administrator.")
	v.SetDefault("messages.lookup_failed_fmt", "An error occurred while trying to find %s.")

	v.SetDefault("messages.deleted_fmt", "%s was removed from the list.")
	v.SetDefault("messages.hidden_fmt", "%s is now hidden from the list.")
	v.SetDefault("messages.unhidden_fmt", "%s is visible in the list again.")
	v.SetDefault("messages.not_listed_fmt", "%s is not registered.")

	v.SetDefault("messages.refresh_started", "Reputation update started.")
	v.SetDefault("messages.refresh_busy", "A reputation update is already running.")
	v.SetDefault("messages.last_refresh_fmt", "Last reputation update: %s (%s).")
	v.SetDefault("messages.never_refreshed", "Reputation has not been updated since startup.")

	v.SetDefault("messages.payment_pending", "Thanks for the payment! 🙏 It will count once confirmed.")
	v.SetDefault("messages.payment_thanks", "Payment confirmed. Thank you for supporting MoreBots! 🙏")
	v.SetDefault("messages.payment_error", "There was an error with your payment! 🚫")
	v.SetDefault("messages.admin_payment_notice_fmt", "💰 @%s donated %s %s")
	v.SetDefault("messages.donation_title", "Support MoreBots")
	v.SetDefault("messages.donation_description", "A small donation keeps the directory running.")

	v.SetDefault("messages.faq_label", "❓ FAQ")
	v.SetDefault("messages.faq_rating", "Glyphs follow the reputation score from the identity service: 🌟 4.5+, ⭐ 3.5+, ✨ 2.5+, 🔸 1.5+, 🔹 below, ❔ not rated yet. Scores are refreshed once a day.")
	v.SetDefault("messages.faq_hidden", "Bot owners can ask the administrator to hide their bot. Hidden bots stay registered but are not shown.")
	v.SetDefault("messages.faq_newness", "🆕 marks bots added during the last week.")
}
