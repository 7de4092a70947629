// Package visitors names anonymous visitors for display.
package visitors

import "hash/fnv"

// AliasKey is the row key holding the display alias of an anonymous visitor.
const AliasKey = "alias"

var adjectives = []string{
	"Curious", "Happy", "Clever", "Wise", "Playful", "Brave", "Swift", "Gentle", "Smart", "Busy",
	"Daring", "Fearless", "Bold", "Energetic", "Lively", "Spirited", "Vibrant", "Agile", "Nimble", "Quick",
	"Bright", "Radiant", "Glowing", "Sparkling", "Cheerful", "Joyful", "Merry", "Jolly", "Gleeful", "Creative",
	"Inventive", "Artistic", "Elegant", "Graceful", "Dapper", "Friendly", "Kind", "Warm", "Cordial", "Charming",
	"Mystic", "Peaceful", "Calm", "Serene", "Tranquil", "Quiet", "Relaxed", "Patient", "Sunny", "Steady",
}

var animals = []string{
	"Panda", "Fox", "Owl", "Otter", "Lion", "Eagle", "Deer", "Raven", "Beaver", "Koala",
	"Sloth", "Hamster", "Cat", "Bear", "Penguin", "Kangaroo", "Parrot", "Giraffe", "Duck", "Raccoon",
	"Elephant", "Monkey", "Gorilla", "Leopard", "Camel", "Meerkat", "Goat", "Llama", "Rabbit", "Hedgehog",
	"Tiger", "Wolf", "Falcon", "Hawk", "Dolphin", "Whale", "Seahorse", "Turtle", "Octopus", "Seal",
	"Walrus", "Crab", "Swan", "Heron", "Finch", "Sparrow", "Dove", "Dragon", "Unicorn", "Phoenix",
}

// Alias returns a stable "Adjective Animal" name for signature. Equal
// signatures always get the same alias; distinct ones usually differ.
func Alias(signature string) string {
	h := fnv.New32a()
	h.Write([]byte(signature))
	n := h.Sum32()

	adjective := adjectives[n%uint32(len(adjectives))]
	animal := animals[(n/uint32(len(adjectives)))%uint32(len(animals))]
	return adjective + " " + animal
}

// Label sets AliasKey on every row without an identified user, derived from
// its device user id or, failing that, its session id. Identified rows get
// a nil alias.
func Label(rows []map[string]any) []map[string]any {
	for _, row := range rows {
		if id, _ := row["identified_user_id"].(string); id != "" {
			row[AliasKey] = nil
			continue
		}
		signature, _ := row["user_id"].(string)
		if signature == "" {
			signature, _ = row["session_id"].(string)
		}
		if signature == "" {
			row[AliasKey] = nil
			continue
		}
		row[AliasKey] = Alias(signature)
	}
	return rows
}
