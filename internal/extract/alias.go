package extract

import (
	"regexp"
	"strings"
)

const (
	AliasCPU         = "CPU"
	AliasMemory      = "memoria"
	AliasDisk        = "disco"
	AliasCreation    = "creación de recursos"
	AliasFailedCalls = "solicitudes fallidas"
	AliasReboot      = "reinicio"
	AliasUnavailable = "indisponibilidad"
	AliasStarting    = "inicio"
	AliasMaintenance = "mantenimiento programado"
	AliasBilling     = "billing"
)

var (
	propertiesPattern = regexp.MustCompile(`(?s)Properties\s+\{(.*?)\}`)
	rebootPattern     = regexp.MustCompile(`(?i)\breboot\b`)
)

type nameRule struct {
	needles []string
	alias   string
}

// Checked in order; the first rule with a matching needle wins.
var nameRules = []nameRule{
	{needles: []string{"cpu"}, alias: AliasCPU},
	{needles: []string{"memory", "memoria"}, alias: AliasMemory},
	{needles: []string{"disk", "disco"}, alias: AliasDisk},
	{needles: []string{"create", "creacion", "creación"}, alias: AliasCreation},
	{needles: []string{"failed requests"}, alias: AliasFailedCalls},
}

// Classify maps an alert name and mail body to a short category label.
// The body's Properties block takes precedence over the alert name; when
// nothing matches the alert name is returned unchanged.
func Classify(alertName, body string) string {
	if m := propertiesPattern.FindStringSubmatch(body); m != nil {
		props := m[1]
		lower := strings.ToLower(props)
		switch {
		case rebootPattern.MatchString(props):
			return AliasReboot
		case strings.Contains(lower, "unavailable"):
			return AliasUnavailable
		case strings.Contains(lower, "is starting"):
			return AliasStarting
		}
	}

	name := strings.ToLower(alertName)
	for _, rule := range nameRules {
		for _, needle := range rule.needles {
			if strings.Contains(name, needle) {
				return rule.alias
			}
		}
	}
	return alertName
}
