package calls

import (
	"encoding/xml"
)

type voiceResponse struct {
	XMLName xml.Name    `xml:"Response"`
	Say     *sayVerb    `xml:"Say,omitempty"`
	Record  *recordVerb `xml:"Record,omitempty"`
}

type sayVerb struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

type recordVerb struct {
	MaxLength          int    `xml:"maxLength,attr"`
	PlayBeep           bool   `xml:"playBeep,attr"`
	Transcribe         bool   `xml:"transcribe,attr"`
	TranscribeCallback string `xml:"transcribeCallback,attr"`
}

// recordTwiML renders the voice response that greets the caller and records
// a voicemail, delivering the transcription to callbackURL.
func recordTwiML(greeting, callbackURL string) string {
	return renderTwiML(voiceResponse{
		Say: &sayVerb{Text: greeting},
		Record: &recordVerb{
			MaxLength:          120,
			PlayBeep:           true,
			Transcribe:         true,
			TranscribeCallback: callbackURL,
		},
	})
}

// emptyTwiML renders a response with no verbs; the provider hangs up.
func emptyTwiML() string {
	return renderTwiML(voiceResponse{})
}

func renderTwiML(resp voiceResponse) string {
	data, err := xml.Marshal(resp)
	if err != nil {
		// The structs above cannot fail to marshal; keep the provider happy
		// with a bare response if they somehow do.
		return xml.Header + "<Response></Response>"
	}
	return xml.Header + string(data)
}
