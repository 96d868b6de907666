package models

// MoodLevel is the athlete's self-reported disposition before a session.
type MoodLevel string

const (
	MoodVeryTired     MoodLevel = "muito_cansado"
	MoodTired         MoodLevel = "cansado"
	MoodNeutral       MoodLevel = "neutro"
	MoodEnergized     MoodLevel = "disposto"
	MoodVeryEnergized MoodLevel = "muito_disposto"
)

// MoodLevels lists every mood level in canonical order.
func MoodLevels() []MoodLevel {
	return []MoodLevel{MoodVeryTired, MoodTired, MoodNeutral, MoodEnergized, MoodVeryEnergized}
}

// Valid reports whether m is one of the fixed levels.
func (m MoodLevel) Valid() bool {
	switch m {
	case MoodVeryTired, MoodTired, MoodNeutral, MoodEnergized, MoodVeryEnergized:
		return true
	}
	return false
}

// TimeLevel is the time the athlete has available for a session.
type TimeLevel string

const (
	TimeVeryShort TimeLevel = "muito_curto"
	TimeShort     TimeLevel = "curto"
	TimeStandard  TimeLevel = "padrao"
	TimeLong      TimeLevel = "longo"
	TimeVeryLong  TimeLevel = "muito_longo"
)

// TimeLevels lists every time level in canonical order.
func TimeLevels() []TimeLevel {
	return []TimeLevel{TimeVeryShort, TimeShort, TimeStandard, TimeLong, TimeVeryLong}
}

func (t TimeLevel) Valid() bool {
	switch t {
	case TimeVeryShort, TimeShort, TimeStandard, TimeLong, TimeVeryLong:
		return true
	}
	return false
}
