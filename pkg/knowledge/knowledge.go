// Package knowledge holds the static reference data shown beside the chat.
package knowledge

// Disclaimer is shown under the panel.
const Disclaimer = "This AI assistant provides general information only. Always consult with healthcare professionals for medical advice."

// Severity of a symptom.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Symptom is a common symptom and how urgent it usually is.
type Symptom struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
}

// Medication is a common medication and its class.
type Medication struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Condition is a common condition and its category.
type Condition struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Panel is everything the knowledge panel displays.
type Panel struct {
	Symptoms    []Symptom    `json:"symptoms"`
	Medications []Medication `json:"medications"`
	Conditions  []Condition  `json:"conditions"`
	Disclaimer  string       `json:"disclaimer"`
}

// Default returns a fresh copy of the built-in panel.
func Default() Panel {
	return Panel{
		Symptoms: []Symptom{
			{Name: "Chest Pain", Severity: SeverityHigh},
			{Name: "Shortness of Breath", Severity: SeverityHigh},
			{Name: "Fever", Severity: SeverityMedium},
			{Name: "Headache", Severity: SeverityLow},
		},
		Medications: []Medication{
			{Name: "Aspirin", Type: "NSAID"},
			{Name: "Ibuprofen", Type: "NSAID"},
			{Name: "Acetaminophen", Type: "Analgesic"},
			{Name: "Antibiotics", Type: "Antimicrobial"},
		},
		Conditions: []Condition{
			{Name: "Hypertension", Category: "Cardiovascular"},
			{Name: "Diabetes", Category: "Metabolic"},
			{Name: "Asthma", Category: "Respiratory"},
			{Name: "Arthritis", Category: "Musculoskeletal"},
		},
		Disclaimer: Disclaimer,
	}
}

// Urgent returns the symptoms rated High.
func (p Panel) Urgent() []Symptom {
	var out []Symptom
	for _, s := range p.Symptoms {
		if s.Severity == SeverityHigh {
			out = append(out, s)
		}
	}
	return out
}
