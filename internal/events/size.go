package events

// SizeClass buckets a spawn by its height and weight relative to the
// species baseline, the same five-way split the reporting maps use.
type SizeClass int

const (
	SizeTiny SizeClass = iota + 1
	SizeSmall
	SizeNormal
	SizeLarge
	SizeBig
)

var sizeNames = map[string]SizeClass{
	"tiny":   SizeTiny,
	"small":  SizeSmall,
	"normal": SizeNormal,
	"large":  SizeLarge,
	"big":    SizeBig,
}

func (s SizeClass) String() string {
	switch s {
	case SizeTiny:
		return "tiny"
	case SizeSmall:
		return "small"
	case SizeNormal:
		return "normal"
	case SizeLarge:
		return "large"
	case SizeBig:
		return "big"
	}
	return "unknown"
}

// ParseSizeClass maps a rule-file size name to its class.
func ParseSizeClass(name string) (SizeClass, bool) {
	s, ok := sizeNames[name]
	return s, ok
}

// speciesBaseline holds reference height (m) and weight (kg) per species.
// Only species commonly size-filtered are listed; everything else falls back
// to defaultBaseline, which keeps the ratio math defined for unknown ids.
type speciesBaseline struct {
	height float64
	weight float64
}

var defaultBaseline = speciesBaseline{height: 1.0, weight: 30.0}

var speciesBaselines = map[int]speciesBaseline{
	1:   {0.7, 6.9},    // Bulbasaur
	4:   {0.6, 8.5},    // Charmander
	7:   {0.5, 9.0},    // Squirtle
	16:  {0.3, 1.8},    // Pidgey
	19:  {0.3, 3.5},    // Rattata
	25:  {0.4, 6.0},    // Pikachu
	129: {0.9, 10.0},   // Magikarp
	143: {2.1, 460.0},  // Snorlax
	149: {2.2, 210.0},  // Dragonite
}

// SizeOf derives the size class of a spawn from its measured height and
// weight against the species reference curve.
func SizeOf(pokemonID int, height, weight float64) SizeClass {
	base, ok := speciesBaselines[pokemonID]
	if !ok {
		base = defaultBaseline
	}
	ratio := weight/base.weight + height/base.height
	switch {
	case ratio < 1.5:
		return SizeTiny
	case ratio <= 1.75:
		return SizeSmall
	case ratio < 2.25:
		return SizeNormal
	case ratio <= 2.75:
		return SizeLarge
	default:
		return SizeBig
	}
}

// MeasuredSize parses the raw height/weight text of a spawn and derives its
// size class. The second return is false when either measurement is
// unparsable; a configured size filter must treat that as a non-match.
func (p *Pokemon) MeasuredSize() (SizeClass, bool) {
	h, hok := flexString(p.Height).float()
	w, wok := flexString(p.Weight).float()
	if !hok || !wok {
		return 0, false
	}
	return SizeOf(p.PokemonID, h, w), true
}
