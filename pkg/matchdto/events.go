package matchdto

import "encoding/json"

// Spectator event types.
const (
	EventGameStarted  = "game_started"
	EventMovePlayed   = "move"
	EventGameFinished = "game_finished"
	EventStandings    = "standings"
)

// Envelope is the websocket frame: t names the event, m carries it.
type Envelope struct {
	T string          `json:"t"`
	M json.RawMessage `json:"m,omitempty"`
}

func NewEnvelope(t string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{T: t}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{T: t, M: raw}, nil
}

// Decode unmarshals the payload into out. An empty payload leaves out
// untouched.
func (e Envelope) Decode(out any) error {
	if len(e.M) == 0 {
		return nil
	}
	return json.Unmarshal(e.M, out)
}
