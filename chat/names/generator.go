// Package names generates display names for anonymous chat participants,
// in the shape "<adjective> <aircraft model>".
package names

import "math/rand"

var adjectives = []string{
	"Brave",
	"Calm",
	"Cheerful",
	"Curious",
	"Daring",
	"Eager",
	"Fearless",
	"Gentle",
	"Graceful",
	"Jolly",
	"Keen",
	"Lucky",
	"Mighty",
	"Nimble",
	"Patient",
	"Quick",
	"Quiet",
	"Sleepy",
	"Soaring",
	"Speedy",
	"Steady",
	"Swift",
	"Turbulent",
	"Witty",
}

var aircrafts = []string{
	"Airbus A320",
	"Airbus A330",
	"Airbus A350",
	"Airbus A380",
	"ATR 72",
	"Boeing 717",
	"Boeing 737",
	"Boeing 747",
	"Boeing 757",
	"Boeing 767",
	"Boeing 777",
	"Boeing 787",
	"Bombardier CRJ900",
	"Cessna 172",
	"Concorde",
	"DC-3",
	"Embraer E190",
	"Fokker 100",
	"Gulfstream G650",
	"Piper Cub",
}

// Generate picks one adjective and one aircraft model uniformly at random.
func Generate() string {
	adjective := adjectives[rand.Intn(len(adjectives))]
	aircraft := aircrafts[rand.Intn(len(aircrafts))]

	return adjective + " " + aircraft
}
