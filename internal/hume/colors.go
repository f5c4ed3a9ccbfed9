package hume

// DefaultColor is used for any affect name missing from the table.
const DefaultColor = "#6B7280"

// emotionColors maps the prosody model's affect vocabulary to the hex color
// the dashboard renders its bar with. Single source of truth; do not copy
// this table elsewhere.
var emotionColors = map[string]string{
	"Interest":       "#3B82F6",
	"Calmness":       "#06B6D4",
	"Amusement":      "#F59E0B",
	"Excitement":     "#EF4444",
	"Determination":  "#F97316",
	"Realization":    "#8B5CF6",
	"Joy":            "#10B981",
	"Surprise":       "#EC4899",
	"Confusion":      "#6B7280",
	"Concentration":  "#7C3AED",
	"Contemplation":  "#0891B2",
	"Awkwardness":    "#DC2626",
	"Disappointment": "#9333EA",
	"Embarrassment":  "#BE185D",
	"Sadness":        "#1E40AF",
	"Boredom":        "#374151",
	"Admiration":     "#059669",
	"Adoration":      "#DB2777",
	"Aesthetic":      "#7C2D12",
	"Anger":          "#DC2626",
	"Anxiety":        "#7C3AED",
	"Craving":        "#EA580C",
	"Desire":         "#BE123C",
	"Distress":       "#B91C1C",
	"Ecstasy":        "#DC2626",
	"Empathic":       "#059669",
	"Entrancement":   "#7C3AED",
	"Envy":           "#16A34A",
	"Fear":           "#374151",
	"Guilt":          "#6B21A8",
	"Hope":           "#0EA5E9",
	"Love":           "#E11D48",
	"Nostalgia":      "#9333EA",
	"Pain":           "#991B1B",
	"Pride":          "#F59E0B",
	"Relief":         "#10B981",
	"Romance":        "#E11D48",
	"Satisfaction":   "#059669",
	"Sympathy":       "#3B82F6",
	"Triumph":        "#F59E0B",
}

// Color returns the hex color for an affect name, or DefaultColor when the
// name is not in the vocabulary.
func Color(emotion string) string {
	if c, ok := emotionColors[emotion]; ok {
		return c
	}
	return DefaultColor
}
