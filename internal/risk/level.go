package risk

// Upper bounds (inclusive) of the low and medium bands.
const (
	LowMax    = 39
	MediumMax = 74
)

// Level is the risk band a score falls into.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Action is what the caller should do with the transaction.
type Action string

const (
	ActionAllow  Action = "allow"
	ActionVerify Action = "verify"
	ActionBlock  Action = "block"
)

// LevelForScore maps a 0–100 score to its band.
func LevelForScore(score int) Level {
	switch {
	case score <= LowMax:
		return LevelLow
	case score <= MediumMax:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Arabic returns the level's label shown on the front-end page.
func (l Level) Arabic() string {
	switch l {
	case LevelLow:
		return "منخفض"
	case LevelMedium:
		return "متوسط"
	case LevelHigh:
		return "مرتفع"
	default:
		return ""
	}
}

// Recommendation returns the operator guidance for the level.
func (l Level) Recommendation() string {
	switch l {
	case LevelLow:
		return "تنفيذ مباشر - لا توجد مخاطر"
	case LevelMedium:
		return "يتطلب تحقق إضافي (OTP، بصمة)"
	case LevelHigh:
		return "إيقاف العملية ومراجعة أمنية"
	default:
		return ""
	}
}

// Action returns the action recommended for the level.
func (l Level) Action() Action {
	switch l {
	case LevelLow:
		return ActionAllow
	case LevelMedium:
		return ActionVerify
	default:
		return ActionBlock
	}
}

// String returns the level's wire name.
func (l Level) String() string { return string(l) }
