package session

// Descriptor is returned once per bootstrap call and carries everything the
// customer's client needs to join its channel.
type Descriptor struct {
	CustomerID    string `json:"customerId"`
	CustomerToken string `json:"customerToken"`
	ChannelID     string `json:"channelId"`
	APIKey        string `json:"streamApiKey"`
}
