package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"alert-digest/internal/digest"
	"alert-digest/internal/directory"
)

const (
	// DefaultVendorMarker must appear in the sender address.
	DefaultVendorMarker = "microsoft"
	// DefaultOffset is subtracted from received timestamps.
	DefaultOffset = 5 * time.Hour

	maintenanceName = "Planned Maintenance"
	billingName     = "Billing"
)

var (
	maintenanceTarget = regexp.MustCompile(`to\s+(.*)`)
	severityPattern   = regexp.MustCompile(`Severity:\s*\d\s*(.+)`)

	quotedAlertUpper = regexp.MustCompile(`Alert\s+["']?([^"']+)["']?\s+was`)
	plainAlertUpper  = regexp.MustCompile(`Alert\s+(.*?)\s+was`)
	quotedAlertFold  = regexp.MustCompile(`(?i:alert)\s+["']?([^"']+)["']?\s+was`)
	plainAlertFold   = regexp.MustCompile(`(?i:alert)\s+(.*?)\s+was`)
)

// Options tune the extractor.
type Options struct {
	VendorMarker string
	// Offset is subtracted from received timestamps; nil means DefaultOffset.
	Offset       *time.Duration
	Resolver     *Resolver
}

// Extractor turns raw records into events.
type Extractor struct {
	marker    string
	offset    time.Duration
	resolver  *Resolver
	directory *directory.Directory
	logger    zerolog.Logger
}

// New constructs an Extractor. Zero options fall back to defaults.
func New(opts Options, dir *directory.Directory, logger zerolog.Logger) *Extractor {
	marker := strings.ToLower(strings.TrimSpace(opts.VendorMarker))
	if marker == "" {
		marker = DefaultVendorMarker
	}
	offset := DefaultOffset
	if opts.Offset != nil {
		offset = *opts.Offset
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = DefaultResolver()
	}
	return &Extractor{
		marker:    marker,
		offset:    offset,
		resolver:  resolver,
		directory: dir,
		logger:    logger.With().Str("component", "extractor").Logger(),
	}
}

// subjectMatch is the outcome of subject classification.
type subjectMatch struct {
	name     string
	kind     digest.Kind
	alias    string
	resource string
}

// Extract builds the event for rec, or the rejection explaining why none
// could be built. Exactly one of the two results is non-nil.
func (e *Extractor) Extract(rec digest.Record) (*digest.Event, *digest.Rejection) {
	date, clock := digest.LocalTime(rec.ReceivedAt, e.offset)

	if !strings.Contains(strings.ToLower(rec.Sender), e.marker) {
		return nil, e.reject(digest.NewSenderRejection(rec.Subject, date, clock))
	}

	match, ok := classifySubject(rec.Subject)
	if !ok {
		return nil, e.reject(digest.NewNameRejection(rec.Subject))
	}

	alias := match.alias
	if alias == "" {
		alias = Classify(match.name, rec.Body)
	}

	res := e.resolver.Resolve(rec.Body, Resolution{Resource: match.resource})
	name, client := e.subscription(res)

	var subject string
	switch alias {
	case AliasCreation, AliasBilling:
		if name == "" || client == "" {
			return nil, e.reject(digest.NewFieldRejection(rec.Subject, date, clock))
		}
		subject = fmt.Sprintf("Se recibe alerta de %s en %s de %s", alias, name, client)
	default:
		if res.Resource == "" {
			return nil, e.reject(digest.NewFieldRejection(rec.Subject, date, clock))
		}
		subject = fmt.Sprintf("Se recibe alerta de %s para %s", alias, res.Resource)
		if name != "" && client != "" {
			subject += fmt.Sprintf(" en %s de %s", name, client)
		}
	}

	return &digest.Event{
		OriginalSubject:   rec.Subject,
		NormalizedSubject: subject,
		Date:              date,
		Time:              clock,
		AlertName:         match.name,
		Kind:              match.kind,
	}, nil
}

func (e *Extractor) reject(r digest.Rejection) *digest.Rejection {
	e.logger.Debug().Str("kind", string(r.Kind)).Str("subject", r.Subject).Msg("record rejected")
	return &r
}

// subscription resolves the display name and client. A known id wins; a
// subscription name found in the text is matched against the directory to
// recover the client.
func (e *Extractor) subscription(res Resolution) (string, string) {
	if res.SubscriptionID != "" {
		if sub, ok := e.directory.Lookup(res.SubscriptionID); ok {
			return sub.Name, sub.Client
		}
	}
	if res.SubscriptionName == "" {
		return "", ""
	}
	if sub, ok := e.directory.FindByName(res.SubscriptionName); ok {
		return res.SubscriptionName, sub.Client
	}
	return res.SubscriptionName, ""
}

func classifySubject(subject string) (subjectMatch, bool) {
	if strings.Contains(subject, maintenanceName) {
		m := subjectMatch{name: maintenanceName, kind: digest.KindOther, alias: AliasMaintenance}
		if t := maintenanceTarget.FindStringSubmatch(subject); t != nil {
			m.resource = strings.TrimSpace(t[1])
		}
		return m, true
	}
	if strings.Contains(subject, "budget") {
		return subjectMatch{name: billingName, kind: digest.KindOther, alias: AliasBilling}, true
	}

	if strings.Contains(subject, "Severity:") {
		if m := severityPattern.FindStringSubmatch(subject); m != nil {
			return subjectMatch{name: strings.TrimSpace(m[1]), kind: severityKind(subject)}, true
		}
	}
	if strings.Contains(subject, "was") {
		if strings.Contains(subject, "Alert") {
			if name, ok := firstGroup(subject, quotedAlertUpper, plainAlertUpper); ok {
				return subjectMatch{name: name, kind: digest.KindOther}, true
			}
		}
		if strings.Contains(strings.ToLower(subject), "alert") {
			if name, ok := firstGroup(subject, quotedAlertFold, plainAlertFold); ok {
				return subjectMatch{name: name, kind: digest.KindOther}, true
			}
		}
	}
	return subjectMatch{}, false
}

func severityKind(subject string) digest.Kind {
	switch {
	case strings.Contains(subject, "Activated"):
		return digest.KindActivated
	case strings.Contains(subject, "Deactivated"):
		return digest.KindDeactivated
	default:
		return digest.KindOther
	}
}

func firstGroup(s string, patterns ...*regexp.Regexp) (string, bool) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(s); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}
