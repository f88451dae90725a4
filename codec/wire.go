// Package codec implements the bidirectional JSON wire mapping for Value
// (§4.2, §6): encode produces the on-the-wire object with absent optionals
// omitted; decode parses it back, with the type tag selecting the payload
// parser.
package codec

// wireValue mirrors the §6 wire object field-for-field. Optional fields use
// omitempty so an absent hop, dependent-set or property-bag is omitted
// rather than serialized as null or empty.
type wireValue struct {
	FullRunningID string `json:"fullRunningId"`
	ValueType     string `json:"valueType"`
	Value         string `json:"value"`
	Mode          string `json:"mode"`
	IASValidity   string `json:"iasValidity"`

	PluginProductionTStamp    string `json:"pluginProductionTStamp,omitempty"`
	SentToConverterTStamp     string `json:"sentToConverterTStamp,omitempty"`
	ReceivedFromPluginTStamp  string `json:"receivedFromPluginTStamp,omitempty"`
	ConvertedProductionTStamp string `json:"convertedProductionTStamp,omitempty"`
	SentToBsdbTStamp          string `json:"sentToBsdbTStamp,omitempty"`
	ReadFromBsdbTStamp        string `json:"readFromBsdbTStamp,omitempty"`
	DasuProductionTStamp      string `json:"dasuProductionTStamp,omitempty"`

	DepsFullRunningIDs []string          `json:"depsFullRunningIds,omitempty"`
	Props              map[string]string `json:"props,omitempty"`
}

// heartbeatWire mirrors the §6 heartbeat codec: {id, timestamp, status}.
type heartbeatWire struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}
