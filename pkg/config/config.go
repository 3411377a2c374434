package config

import (
	_ "embed"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
)

const envPrefix = "tdr"

//go:embed storefront.yaml
var defaultStorefront []byte

type Config struct {
	ListenAddr     string `envconfig:"LISTEN_ADDR" default:":8080"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	StorefrontFile string `envconfig:"STOREFRONT_FILE"`

	StorageDriver  string `envconfig:"STORAGE_DRIVER" default:"file"`
	DataFile       string `envconfig:"DATA_FILE" default:"data/storefront.json"`
	CatalogKey     string `envconfig:"CATALOG_KEY" default:"tdr_products"`
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"tdr:"`
	MySQLDSN       string `envconfig:"MYSQL_DSN"`

	SuccessRevertDelay time.Duration `envconfig:"SUCCESS_REVERT_DELAY" default:"4s"`
	LocationTimeout    time.Duration `envconfig:"LOCATION_TIMEOUT" default:"10s"`
}

// Storefront is the static data a store is deployed with.
type Storefront struct {
	Store      model.StoreIdentity
	Categories []model.Category
	Products   []model.Product
}

type storefrontYAML struct {
	Store struct {
		Name        string `yaml:"name"`
		Destination string `yaml:"destination"`
	} `yaml:"store"`
	Categories []model.Category `yaml:"categories"`
	Products   []productYAML    `yaml:"products"`
}

type productYAML struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Category   string `yaml:"category"`
	Price      string `yaml:"price"`
	Unit       string `yaml:"unit"`
	Image      string `yaml:"image"`
	InStock    *bool  `yaml:"inStock"`
	IsFeatured bool   `yaml:"isFeatured"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadStorefront reads the storefront file, or the built-in TDR-STORE data when
// path is empty.
func LoadStorefront(path string) (*Storefront, error) {
	data := defaultStorefront
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read storefront %s", path)
		}
	}
	return ParseStorefront(data)
}

func ParseStorefront(data []byte) (*Storefront, error) {
	var raw storefrontYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode storefront")
	}

	sf := &Storefront{
		Store: model.StoreIdentity{
			Name:        strings.TrimSpace(raw.Store.Name),
			Destination: strings.TrimSpace(raw.Store.Destination),
		},
		Categories: raw.Categories,
	}
	for _, p := range raw.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "product %s: price", p.ID)
		}
		image := p.Image
		if image == "" {
			image = model.PlaceholderImage
		}
		inStock := p.InStock == nil || *p.InStock
		sf.Products = append(sf.Products, model.Product{
			ID:         p.ID,
			Name:       p.Name,
			Category:   p.Category,
			Price:      price,
			Unit:       p.Unit,
			Image:      image,
			InStock:    inStock,
			IsFeatured: p.IsFeatured,
		})
	}

	if err := sf.Validate(); err != nil {
		return nil, err
	}
	return sf, nil
}

func (s *Storefront) Validate() error {
	if s.Store.Name == "" {
		return errors.New("store name is required")
	}
	if s.Store.Destination == "" {
		return errors.New("store destination is required")
	}
	if len(s.Categories) == 0 {
		return errors.New("at least one category is required")
	}

	known := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		if c.Name == "" {
			return errors.New("category name is required")
		}
		if c.Labels["en"] == "" {
			return errors.Errorf("category %q has no en label", c.Name)
		}
		known[c.Name] = true
	}

	ids := make(map[string]bool, len(s.Products))
	for _, p := range s.Products {
		if p.ID == "" || p.Name == "" {
			return errors.New("seed products need an id and a name")
		}
		if ids[p.ID] {
			return errors.Errorf("duplicate seed product id %q", p.ID)
		}
		ids[p.ID] = true
		if p.Price.IsNegative() {
			return errors.Errorf("seed product %q has a negative price", p.ID)
		}
		if p.Category != model.Uncategorized && !known[p.Category] {
			return errors.Errorf("seed product %q references unknown category %q", p.ID, p.Category)
		}
	}
	return nil
}
