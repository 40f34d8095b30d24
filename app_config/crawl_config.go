package app_config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// RessortRange selects a ressort and the date window to walk.
type RessortRange struct {
	Name string `yaml:"name"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Dates parses the window. An empty "to" means today; "from" is required.
func (r RessortRange) Dates() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", r.From)
	if err != nil {
		return start, end, errors.Wrapf(err, "ressort %s: parse from date", r.Name)
	}
	if r.To == "" {
		return start, time.Now().UTC(), nil
	}
	end, err = time.Parse("2006-01-02", r.To)
	if err != nil {
		return start, end, errors.Wrapf(err, "ressort %s: parse to date", r.Name)
	}
	return start, end, nil
}

// CrawlConfig describes one crawl run: which tickers, articles and
// ressorts to fetch, and whether user follow graphs are expanded.
type CrawlConfig struct {
	Tickers           []int64        `yaml:"tickers"`
	Articles          []int64        `yaml:"articles"`
	Ressorts          []RessortRange `yaml:"ressorts"`
	WithRelationships bool           `yaml:"with_relationships"`
}

// ParseCrawlConfig reads a crawl config from a YAML file.
func ParseCrawlConfig(path string) (CrawlConfig, error) {
	c := CrawlConfig{}
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "read crawl config %s", path)
	}
	if err := yaml.Unmarshal(yamlFile, &c); err != nil {
		return c, errors.Wrapf(err, "parse crawl config %s", path)
	}
	return c, nil
}
