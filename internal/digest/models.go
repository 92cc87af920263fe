package digest

import (
	"fmt"
	"time"
)

const (
	// DateLayout formats Event.Date.
	DateLayout = "2006-01-02"
	// TimeLayout formats Event.Time.
	TimeLayout = "15:04"
)

// Record is one raw notification email as supplied by a source.
type Record struct {
	Subject    string
	Sender     string
	Recipient  string
	ReceivedAt time.Time
	Body       string
}

// Kind tells whether an event opens, closes or does not take part in an interval.
type Kind int

const (
	// KindOther marks single-fire notifications; never paired.
	KindOther Kind = iota
	// KindActivated opens an alert interval.
	KindActivated
	// KindDeactivated closes an alert interval.
	KindDeactivated
)

func (k Kind) String() string {
	switch k {
	case KindActivated:
		return "Activated"
	case KindDeactivated:
		return "Deactivated"
	default:
		return "Other"
	}
}

// Event is the structured fact recovered from one accepted Record.
type Event struct {
	OriginalSubject   string
	NormalizedSubject string
	Date              string
	Time              string
	AlertName         string
	Kind              Kind
}

// LocalTime converts a received timestamp to UTC shifted back by offset and
// returns the date and clock strings used across the report. The zone
// carried by receivedAt does not affect the result.
func LocalTime(receivedAt time.Time, offset time.Duration) (string, string) {
	local := receivedAt.UTC().Add(-offset)
	return local.Format(DateLayout), local.Format(TimeLayout)
}

// RejectionKind classifies why a record produced no event.
type RejectionKind string

const (
	SenderRejected    RejectionKind = "sender_rejected"
	ExtractionFailed  RejectionKind = "extraction_failed"
	SourceUnavailable RejectionKind = "source_unavailable"
)

// Rejection explains one discarded input. Message is the rendered log line.
type Rejection struct {
	Kind      RejectionKind
	Subject   string
	Reference string
	Message   string
}

func (r Rejection) String() string {
	return r.Message
}

// NewSenderRejection builds the log line for mail not sent by the vendor.
func NewSenderRejection(subject, date, clock string) Rejection {
	return Rejection{
		Kind:    SenderRejected,
		Subject: subject,
		Message: fmt.Sprintf("Correo ignorado (no Microsoft) - Asunto: %s - Fecha: %s - Hora: %s", subject, date, clock),
	}
}

// NewNameRejection builds the log line for subjects with no recognizable alert name.
func NewNameRejection(subject string) Rejection {
	return Rejection{
		Kind:    ExtractionFailed,
		Subject: subject,
		Message: fmt.Sprintf("No se pudo obtener nombre de alerta para este asunto: %s", subject),
	}
}

// NewFieldRejection builds the log line for records missing a required field.
func NewFieldRejection(subject, date, clock string) Rejection {
	return Rejection{
		Kind:    ExtractionFailed,
		Subject: subject,
		Message: fmt.Sprintf("Error al procesar correo - Asunto: %s - Fecha: %s - Hora: %s", subject, date, clock),
	}
}

// NewSourceRejection builds the log line for a reference the source could not read.
func NewSourceRejection(reference string, err error) Rejection {
	return Rejection{
		Kind:      SourceUnavailable,
		Reference: reference,
		Message:   fmt.Sprintf("Error al abrir %s: %v", reference, err),
	}
}

// NewIgnoredFileRejection builds the log line for files the sources do not handle.
func NewIgnoredFileRejection(name string) Rejection {
	return Rejection{
		Kind:      SourceUnavailable,
		Reference: name,
		Message:   fmt.Sprintf("Archivo ignorado: %s", name),
	}
}
