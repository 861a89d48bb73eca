package directory

// CommandID is a button value the router knows how to answer.
type CommandID string

// Known commands. Values are sent back verbatim by the transport.
const (
	CommandShowAll   CommandID = "show all bots"
	CommandAddBot    CommandID = "add a bot"
	CommandDonate    CommandID = "donate"
	CommandFAQRating CommandID = "faq rating"
	CommandFAQHidden CommandID = "faq hidden"
	CommandFAQNew    CommandID = "faq new"
)

// InertCommand is attached to decorative buttons and never answered.
const InertCommand = "noop"

// AllCommands lists every known command.
func AllCommands() []CommandID {
	return []CommandID{
		CommandShowAll,
		CommandAddBot,
		CommandDonate,
		CommandFAQRating,
		CommandFAQHidden,
		CommandFAQNew,
	}
}

// ParseCommand maps a button value to a known command.
func ParseCommand(value string) (CommandID, bool) {
	for _, c := range AllCommands() {
		if string(c) == value {
			return c, true
		}
	}
	return "", false
}

func defaultControls() []Control {
	return []Control{
		{Label: "Show all bots", Value: string(CommandShowAll)},
		{Label: "Add a bot", Value: string(CommandAddBot)},
		{Label: "Donate", Value: string(CommandDonate)},
	}
}

func faqGroup(label string) *ControlGroup {
	return &ControlGroup{
		Label: label,
		Controls: []Control{
			{Label: "How are bots rated?", Value: string(CommandFAQRating)},
			{Label: "Why is a bot hidden?", Value: string(CommandFAQHidden)},
			{Label: "What does 🆕 mean?", Value: string(CommandFAQNew)},
		},
	}
}
