package emoji

// Pack names recognized by the rendering client.
const (
	PackFaces   = "faces"
	PackAnimals = "animals"
	PackFood    = "food"
	PackSports  = "sports"
	PackObjects = "objects"
)

// PackNames lists every pack, in catalog order.
var PackNames = []string{PackFaces, PackAnimals, PackFood, PackSports, PackObjects}

// Packs is the emoji catalog, mirrored from the client's pack table.
// Read-only for the process lifetime.
var Packs = map[string][]string{
	PackFaces:   {"😀", "😂", "😍", "😎", "🤩", "🥳", "😜", "😱", "🤖", "👻", "😴", "😡", "🤔", "😇", "🤠"},
	PackAnimals: {"🐶", "🐱", "🦄", "🐸", "🦁", "🐯", "🐨", "🐼", "🦊", "🐰", "🐷", "🐮", "🦋", "🐙"},
	PackFood:    {"🍕", "🍔", "🍟", "🍦", "🍩", "🍪", "🍰", "🍫", "🍭", "🍬", "🍎", "🍌", "🍇", "🍓", "🍉"},
	PackSports:  {"⚽", "🏀", "🏈", "⚾", "🎾", "🏐", "🏓", "🏸", "🏊", "🏃", "🚴", "🎯", "🎳", "🏆", "🥇"},
	PackObjects: {"🚗", "✈️", "🚁", "🚢", "🚲", "🏠", "🏰", "🗼", "🎡", "🎢", "🎪", "🎭", "🎨", "🎤", "🎧"},
}

// Faces is the pool that round sequences are drawn from.
var Faces = Packs[PackFaces]

var packOf = map[string]string{}

func init() {
	for name, list := range Packs {
		for _, e := range list {
			packOf[e] = name
		}
	}
}

// PackOf reports which pack an emoji belongs to.
func PackOf(e string) (string, bool) {
	p, ok := packOf[e]
	return p, ok
}
