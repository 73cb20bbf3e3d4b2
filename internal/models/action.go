package models

// ActionType identifies what an escalation action does.
type ActionType string

const (
	ActionNotifyUser         ActionType = "notify_user"
	ActionNotifyRole         ActionType = "notify_role"
	ActionNotifyDepartment   ActionType = "notify_department"
	ActionEscalateToManager  ActionType = "escalate_to_manager"
	ActionSendEmergencyAlert ActionType = "send_emergency_alert"
	ActionSendRegulatory     ActionType = "send_regulatory"
)

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	switch t {
	case ActionNotifyUser, ActionNotifyRole, ActionNotifyDepartment,
		ActionEscalateToManager, ActionSendEmergencyAlert, ActionSendRegulatory:
		return true
	}
	return false
}

// Channel identifies a notification delivery channel.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelPush     Channel = "push"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelPush:
		return true
	}
	return false
}

// ParseChannel converts a string to Channel.
func ParseChannel(s string) (Channel, bool) {
	switch s {
	case "email", "EMAIL", "Email":
		return ChannelEmail, true
	case "sms", "SMS", "Sms":
		return ChannelSMS, true
	case "whatsapp", "WHATSAPP", "WhatsApp":
		return ChannelWhatsApp, true
	case "push", "PUSH", "Push":
		return ChannelPush, true
	default:
		return "", false
	}
}

// EmergencyChannels is the channel set used for emergency alerts.
// It overrides whatever the triggering action configured.
var EmergencyChannels = []Channel{ChannelEmail, ChannelSMS, ChannelPush}
