// Package protocol defines the message envelopes exchanged over the student
// and observer duplex channels.
package protocol

import "encoding/json"

// Envelope type discriminators. The student channel accepts two dialects for
// each inbound operation; both map onto the same variant.
const (
	TypeClientInit      = "client.init"
	TypeChangeScenario  = "change_scenario"
	TypeClientText      = "client.text"
	TypeUserText        = "user_text"
	TypeServerResponse  = "server.response"
	TypeError           = "error"
	TypeScenarioChanged = "scenario_changed"
	TypeSessionRemove   = "session.remove"
)

// Inbound is the closed set of student-channel message variants. Unknown
// types parse into Unknown and are ignored by the handler, so newer clients
// can speak to older servers without breaking the connection.
type Inbound interface {
	isInbound()
}

// SelectScenario asks the server to (re)start the conversation in a scenario.
type SelectScenario struct {
	Scenario string
	Level    string
}

// SubmitText carries one student utterance.
type SubmitText struct {
	Text string
}

// Unknown is the forward-compatibility arm for unrecognized types.
type Unknown struct {
	Type string
}

func (SelectScenario) isInbound() {}
func (SubmitText) isInbound()     {}
func (Unknown) isInbound()        {}

type rawInbound struct {
	Type     string `json:"type"`
	Scenario string `json:"scenario"`
	Level    string `json:"level"`
	Text     string `json:"text"`
}

// ParseInbound decodes a student-channel payload into its variant. Invalid
// JSON is the only error; an unrecognized type is not.
func ParseInbound(data []byte) (Inbound, error) {
	var raw rawInbound
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch raw.Type {
	case TypeClientInit, TypeChangeScenario:
		return SelectScenario{Scenario: raw.Scenario, Level: raw.Level}, nil
	case TypeClientText, TypeUserText:
		return SubmitText{Text: raw.Text}, nil
	default:
		return Unknown{Type: raw.Type}, nil
	}
}

// ServerResponse delivers one assistant turn. Audio is base64 MP3 and is
// omitted when synthesis failed; text delivery never depends on it.
type ServerResponse struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Audio string `json:"audio,omitempty"`
}

// NewServerResponse builds the outbound turn envelope.
func NewServerResponse(text, audio string) ServerResponse {
	return ServerResponse{Type: TypeServerResponse, Text: text, Audio: audio}
}

// ErrorMessage reports a handled failure to the student.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewError builds an error envelope.
func NewError(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}

// ScenarioChanged acknowledges a scenario selection.
type ScenarioChanged struct {
	Type     string `json:"type"`
	Scenario string `json:"scenario"`
	Level    string `json:"level"`
}

// NewScenarioChanged builds the acknowledgment envelope.
func NewScenarioChanged(scenario, level string) ScenarioChanged {
	return ScenarioChanged{Type: TypeScenarioChanged, Scenario: scenario, Level: level}
}

// SessionRemove tells observers a session has ended.
type SessionRemove struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// NewSessionRemove builds the observer removal notice.
func NewSessionRemove(id string) SessionRemove {
	return SessionRemove{Type: TypeSessionRemove, ID: id}
}
