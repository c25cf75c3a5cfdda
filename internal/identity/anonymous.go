// Package identity provides the two weak identities visitors carry: a
// generated display name for unsigned comments and an opaque session id
// used only to deduplicate likes.
package identity

import (
	"hash/fnv"
	"math/rand/v2"
	"strings"
)

// AnonymousPrefix starts every generated author name.
const AnonymousPrefix = "Anonymous "

var animals = [...]string{
	"Aardvark", "Albatross", "Alpaca", "Armadillo", "Axolotl",
	"Badger", "Beaver", "Bison", "Capybara", "Chameleon",
	"Cheetah", "Chinchilla", "Crane", "Dingo", "Dolphin",
	"Echidna", "Ferret", "Flamingo", "Fox", "Gazelle",
	"Gecko", "Giraffe", "Hedgehog", "Heron", "Ibis",
	"Jaguar", "Kangaroo", "Koala", "Lemur", "Lynx",
	"Manatee", "Meerkat", "Narwhal", "Ocelot", "Otter",
	"Owl", "Panda", "Pangolin", "Penguin", "Quokka",
	"Raccoon", "Salamander", "Sloth", "Tapir", "Toucan",
	"Walrus", "Wombat", "Yak", "Zebra",
}

// Animals returns a copy of the word list names are drawn from.
func Animals() []string {
	out := make([]string, len(animals))
	copy(out, animals[:])
	return out
}

// AnonymousName picks an animal uniformly at random.
func AnonymousName() string {
	return AnonymousPrefix + animals[rand.IntN(len(animals))]
}

// AnonymousNameFor derives a stable name from seed. Read paths use it for
// stored documents that never had an author, so the label does not change
// between reads.
func AnonymousNameFor(seed string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return AnonymousPrefix + animals[h.Sum32()%uint32(len(animals))]
}

// IsAnonymousName reports whether name has the shape AnonymousName produces.
func IsAnonymousName(name string) bool {
	animal, ok := strings.CutPrefix(name, AnonymousPrefix)
	if !ok {
		return false
	}
	for _, a := range animals {
		if a == animal {
			return true
		}
	}
	return false
}
