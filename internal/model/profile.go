package model

import "time"

// Profile is the slice of a user profile the engine reads and mutates.
type Profile struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    string    `json:"user_id"`
	XP        int       `json:"xp"`
}

// Level is a named experience tier.
type Level struct {
	Name   string `json:"name"`
	MinXP  int    `json:"min_xp"`
	Number int    `json:"number"`
}

// Levels is the experience ladder, ordered by MinXP.
var Levels = []Level{
	{Name: "Novice", MinXP: 0, Number: 1},
	{Name: "Scout", MinXP: 100, Number: 2},
	{Name: "Guardian", MinXP: 300, Number: 3},
	{Name: "Hero", MinXP: 600, Number: 4},
	{Name: "Legend", MinXP: 1000, Number: 5},
}

// LevelFor returns the highest level whose threshold xp has reached.
func LevelFor(xp int) Level {
	for i := len(Levels) - 1; i >= 0; i-- {
		if xp >= Levels[i].MinXP {
			return Levels[i]
		}
	}
	return Levels[0]
}

// NextLevel returns the first level above xp, or false at the top of the ladder.
func NextLevel(xp int) (Level, bool) {
	for _, level := range Levels {
		if level.MinXP > xp {
			return level, true
		}
	}
	return Level{}, false
}

// Progress returns the percentage of the way from the current level to the next.
func Progress(xp int) float64 {
	current := LevelFor(xp)
	next, ok := NextLevel(xp)
	if !ok {
		return 100
	}

	span := float64(next.MinXP - current.MinXP)
	progress := float64(xp-current.MinXP) / span * 100
	switch {
	case progress < 0:
		return 0
	case progress > 100:
		return 100
	}
	return progress
}
