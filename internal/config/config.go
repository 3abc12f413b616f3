package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	DatabaseURL string `env:"DATABASE_URL" envDefault:"shopfront.db"`
	RedisAddr   string `env:"REDIS_ADDR"` // empty = in-process cache

	Store Store `envPrefix:"STORE_"`
	Tax   Tax   `envPrefix:"TAX_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

type Store struct {
	Currency string `env:"CURRENCY" envDefault:"USD"`
	// Hard ceiling on a single line's quantity regardless of stock.
	MaxOrderQty int `env:"MAX_ORDER_QTY" envDefault:"999"`
	// Status a fully paid all-virtual order moves to.
	VirtualPaidStatus string `env:"VIRTUAL_PAID_STATUS" envDefault:"closed"`
	// Balance below this is considered paid in full.
	PaidEpsilon string `env:"PAID_EPSILON" envDefault:"0.001"`
}

type Tax struct {
	// Nexus basis per product type: ORIGIN, DESTINATION or GEO.
	PhysicalNexus string `env:"PHYSICAL_NEXUS" envDefault:"DESTINATION"`
	VirtualNexus  string `env:"VIRTUAL_NEXUS" envDefault:"ORIGIN"`
	// Seller location used under ORIGIN nexus.
	OriginCountry string `env:"ORIGIN_COUNTRY" envDefault:"US"`
	OriginRegion  string `env:"ORIGIN_REGION" envDefault:"CA"`
}
