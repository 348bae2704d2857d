package generator

var firstNames = []string{
	"Ada", "Alan", "Barbara", "Claude", "Dennis", "Edsger", "Frances", "Grace",
	"Hedy", "Ivan", "Joan", "Ken", "Linus", "Margaret", "Niklaus", "Radia",
	"Rob", "Sophie", "Tim", "Yukihiro",
}

var lastNames = []string{
	"Allen", "Backus", "Cerf", "Dijkstra", "Engelbart", "Floyd", "Goldberg",
	"Hamilton", "Hopper", "Kay", "Knuth", "Lamport", "Liskov", "Lovelace",
	"McCarthy", "Perlman", "Ritchie", "Thompson", "Turing", "Wirth",
}

var domains = []string{
	"example.com", "example.org", "example.net", "mail.test", "corp.test",
}

var streets = []string{
	"Main St", "Oak Ave", "Pine Rd", "Maple Dr", "Cedar Ln", "Elm St",
	"Birch Way", "Lake View", "Hill Rd", "Park Pl",
}

var cities = []string{
	"Springfield", "Riverton", "Fairview", "Greenville", "Kingston",
	"Lakeside", "Milford", "Newport", "Oakland", "Salem",
}

var countries = []string{
	"Canada", "France", "Germany", "Japan", "Kenya", "Mexico", "Norway",
	"Portugal", "Spain", "United States",
}

var loremWords = []string{
	"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing",
	"elit", "sed", "do", "eiusmod", "tempor", "incididunt", "ut", "labore",
	"et", "dolore", "magna", "aliqua", "enim",
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var companySuffixes = []string{"Inc", "LLC", "Group", "Partners", "Labs", "Holdings", "and Sons"}

var industries = []string{
	"Aerospace", "Agriculture", "Banking", "Biotechnology", "Construction",
	"Education", "Energy", "Insurance", "Logistics", "Retail", "Software",
	"Telecommunications",
}

var professions = []string{
	"accountant", "analyst", "architect", "designer", "engineer", "librarian",
	"pharmacist", "surveyor", "teacher", "translator",
}

var buzzwords = []string{
	"synergy", "paradigm", "bandwidth", "scalability", "alignment",
	"ecosystem", "leverage", "throughput", "mindshare", "roadmap",
}

// country rows keep every field of one country consistent.
var countryRows = []struct {
	name, code, capital, currency, currencyCode string
	callingCode                                 int
}{
	{"Canada", "CA", "Ottawa", "Canadian Dollar", "CAD", 1},
	{"France", "FR", "Paris", "Euro", "EUR", 33},
	{"Germany", "DE", "Berlin", "Euro", "EUR", 49},
	{"Japan", "JP", "Tokyo", "Yen", "JPY", 81},
	{"Kenya", "KE", "Nairobi", "Kenyan Shilling", "KES", 254},
	{"Mexico", "MX", "Mexico City", "Mexican Peso", "MXN", 52},
	{"Netherlands", "NL", "Amsterdam", "Euro", "EUR", 31},
	{"Norway", "NO", "Oslo", "Norwegian Krone", "NOK", 47},
	{"Portugal", "PT", "Lisbon", "Euro", "EUR", 351},
	{"United States", "US", "Washington", "US Dollar", "USD", 1},
}

// ibanFormats gives the bank code letters and account digits per country.
var ibanFormats = []struct {
	country       string
	letters, nums int
}{
	{"DE", 0, 18},
	{"FR", 0, 23},
	{"GB", 4, 14},
	{"NL", 4, 10},
	{"NO", 0, 11},
}

var titleWords = []string{
	"Silent", "Broken", "Hidden", "Last", "Distant", "Burning", "Golden",
	"Forgotten", "Endless", "Quiet",
}

var titleNouns = []string{
	"River", "Garden", "Empire", "Winter", "Harbor", "Library", "Machine",
	"Orchard", "Signal", "Voyage",
}

var publishers = []string{
	"Harbor House", "Lantern Press", "North Shelf", "Quill & Key",
	"Riverbend Books", "Tall Tree Publishing",
}

var genres = []string{
	"Fantasy", "Historical Fiction", "Mystery", "Poetry", "Romance",
	"Science Fiction", "Thriller", "Biography",
}
