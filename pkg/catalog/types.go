package catalog

// Permission describes one named permission group.
type Permission struct {
	Label   string `yaml:"label" json:"label"`
	Default bool   `yaml:"default" json:"default"`
	Admin   bool   `yaml:"admin" json:"admin"`
}

// Plan describes a purchasable plan and the processor prices it is billed with.
type Plan struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	PriceIDs []string `yaml:"prices" json:"prices"`
}

// Definition is the raw catalog as read from a Source, before validation.
type Definition struct {
	Permissions map[string]Permission `yaml:"permissions"`
	Plans       []Plan                `yaml:"plans"`
}
