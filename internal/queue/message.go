package queue

import "encoding/json"

// Message describes a stored object that should be deleted because no record references it.
type Message struct {
	Ref        string `json:"ref"`
	UserID     string `json:"userId"`
	DocType    string `json:"docType"`
	Reason     string `json:"reason"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int64  `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
