package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Direction is one of the eight compass positions a slot can occupy.
type Direction int

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

// Directions lists every direction clockwise from North.
var Directions = []Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

var directionNames = [...]string{
	North:     "north",
	NorthEast: "northeast",
	East:      "east",
	SouthEast: "southeast",
	South:     "south",
	SouthWest: "southwest",
	West:      "west",
	NorthWest: "northwest",
}

var directionAliases = map[string]Direction{
	"n":  North,
	"ne": NorthEast,
	"e":  East,
	"se": SouthEast,
	"s":  South,
	"sw": SouthWest,
	"w":  West,
	"nw": NorthWest,
}

func (d Direction) Valid() bool {
	return d >= North && d <= NorthWest
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection accepts canonical names ("north-east", "north_east",
// "north east" and "northeast" are equivalent), short aliases such as "ne",
// and the numeric indices 0 through 7. Matching is case-insensitive.
func ParseDirection(s string) (Direction, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return 0, fmt.Errorf("empty direction")
	}
	if isDigits(key) {
		n, err := strconv.Atoi(key)
		if err == nil && Direction(n).Valid() {
			return Direction(n), nil
		}
		return 0, fmt.Errorf("direction index %s out of range 0-7", key)
	}
	if d, ok := directionAliases[key]; ok {
		return d, nil
	}
	if i := strings.IndexAny(key, "-_ "); i > 0 {
		vertical, horizontal := key[:i], key[i+1:]
		if (vertical == "north" || vertical == "south") && (horizontal == "east" || horizontal == "west") {
			key = vertical + horizontal
		}
	}
	for i, name := range directionNames {
		if key == name {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid direction %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
