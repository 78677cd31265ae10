package core

// Message direction values
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// SmsRecord is one message decoded from a telephony backup entry. Keys are
// whatever the backup JSON carried, plus the derived "links", "isodate" and
// "direction" fields.
type SmsRecord map[string]any

// Body returns the message body when it is a string
func (r SmsRecord) Body() (string, bool) {
	s, ok := r["body"].(string)
	return s, ok
}

// Links returns the extracted links, if the record was checked for any
func (r SmsRecord) Links() []string {
	links, _ := r["links"].([]string)
	return links
}

// Direction returns "sent" or "received"
func (r SmsRecord) Direction() string {
	d, _ := r["direction"].(string)
	return d
}

// ISODate returns the formatted message timestamp
func (r SmsRecord) ISODate() string {
	d, _ := r["isodate"].(string)
	return d
}
