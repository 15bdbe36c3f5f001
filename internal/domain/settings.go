package domain

// RoleSettings maps the logical roles of the verification flow to concrete
// gateway role ids. Empty string means unset.
type RoleSettings struct {
	Resident          string `json:"resident"`
	Visitor           string `json:"visitor"`
	BorderAuthority   string `json:"border_authority"`
	ForeignMinister   string `json:"foreign_minister"`
	HeadOfState       string `json:"head_of_state"`
	DeputyHeadOfState string `json:"deputy_head_of_state"`
	Oversight         string `json:"oversight"`
}

// Settings is the durable per-community configuration document. It is loaded
// at startup and written back in full after every setup mutation.
type Settings struct {
	EntryChannelID   string       `json:"entry_channel_id"`
	TicketCategoryID string       `json:"ticket_category_id"`
	LogChannelID     string       `json:"log_channel_id"`
	Roles            RoleSettings `json:"roles"`
	WelcomeTitle     string       `json:"welcome_title"`
	WelcomeBody      string       `json:"welcome_body"`
	TicketCounter    int          `json:"ticket_counter"`
}

// DefaultSettings returns the document used when nothing has been persisted
// yet. All ids start unset; only the welcome text has a default.
func DefaultSettings() Settings {
	return Settings{
		WelcomeTitle: "Welcome!",
		WelcomeBody: "Greetings, traveler! You have arrived at the gates.\n\n" +
			"Please select your status below to proceed with verification:",
	}
}
