package pipeline

// CitySeed is one entry of the fixed ~30-city seed rotation
// (spec.md §4.E.2), carried over verbatim (city/country/language)
// from original_source's agents/lead_generation/tools/config.py
// CITIES constant.
type CitySeed struct {
	CityName string
	Country  string
	Language string
}

var citySeeds = []CitySeed{
	{"Madrid", "Espana", "es"},
	{"Barcelona", "Espana", "es"},
	{"Valencia", "Espana", "es"},
	{"Sevilla", "Espana", "es"},
	{"Bilbao", "Espana", "es"},
	{"Malaga", "Espana", "es"},
	{"Zaragoza", "Espana", "es"},
	{"Alicante", "Espana", "es"},
	{"Ciudad de Mexico", "Mexico", "es"},
	{"Guadalajara", "Mexico", "es"},
	{"Monterrey", "Mexico", "es"},
	{"Puebla", "Mexico", "es"},
	{"Queretaro", "Mexico", "es"},
	{"Buenos Aires", "Argentina", "es"},
	{"Cordoba", "Argentina", "es"},
	{"Rosario", "Argentina", "es"},
	{"Bogota", "Colombia", "es"},
	{"Medellin", "Colombia", "es"},
	{"Cartagena", "Colombia", "es"},
	{"Santiago", "Chile", "es"},
	{"Valparaiso", "Chile", "es"},
	{"Lima", "Peru", "es"},
	{"Montevideo", "Uruguay", "es"},
	{"Quito", "Ecuador", "es"},
	{"Guayaquil", "Ecuador", "es"},
	{"San Jose", "Costa Rica", "es"},
	{"Ciudad de Panama", "Panama", "es"},
	{"Santo Domingo", "Republica Dominicana", "es"},
	{"Guatemala City", "Guatemala", "es"},
	{"San Salvador", "El Salvador", "es"},
}

// ExcludedDomains must never be inserted as leads.
var ExcludedDomains = []string{
	"clutch.co", "sortlist.com", "goodfirms.co", "designrush.com",
	"agencyspotter.com", "upcity.com", "g2.com", "capterra.com",
	"trustpilot.com", "yelp.com", "facebook.com", "instagram.com",
	"twitter.com", "x.com", "linkedin.com", "youtube.com", "tiktok.com",
	"wikipedia.org", "reddit.com", "medium.com", "hubspot.com",
	"semrush.com", "ahrefs.com", "neilpatel.com", "hootsuite.com",
	"sproutsocial.com", "google.com",
}

// ContactPages are probed, in order, during website enrichment.
var ContactPages = []string{
	"", "/contacto", "/contact", "/contact-us", "/contactanos",
	"/about", "/about-us", "/nosotros", "/sobre-nosotros", "/equipo", "/team",
}

// LowPriorityEmailPrefixes mark generic-bad mailbox addresses.
var LowPriorityEmailPrefixes = []string{
	"noreply", "no-reply", "no.reply", "donotreply", "mailer-daemon",
	"postmaster", "webmaster", "admin", "support", "newsletter",
	"suscripciones", "unsubscribe",
}

// GenericGoodEmailPrefixes mark acceptable-but-not-personal addresses
// (spec.md §4.E.3 classification: personal > generic-good > generic-bad).
var GenericGoodEmailPrefixes = []string{
	"info", "hello", "contacto", "contact", "ventas", "sales",
}
