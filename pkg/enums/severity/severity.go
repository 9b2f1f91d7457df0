package severity

import "strings"

type Severity struct {
	Name string
}

func (s Severity) Code() string {
	return s.Name
}

func (s Severity) Label() string {
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

type Enum struct {
	Info    Severity
	Warning Severity
	Error   Severity
}

var Severities = Enum{
	Info:    Severity{Name: "info"},
	Warning: Severity{Name: "warning"},
	Error:   Severity{Name: "error"},
}

var All = []Severity{
	Severities.Info,
	Severities.Warning,
	Severities.Error,
}

// ByName returns the severity for a given name, or nil if not found
func ByName(name string) *Severity {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
