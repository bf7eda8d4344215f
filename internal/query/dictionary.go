package query

import (
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/kensaku/internal/models"
	"gopkg.in/yaml.v3"
)

// Term maps a keyword found in query text to its canonical value.
type Term struct {
	Keyword string `yaml:"keyword"`
	Value   string `yaml:"value"`
}

// Dictionaries are the ordered keyword tables used by the Extractor.
// Order is significant: entities are emitted in table order.
type Dictionaries struct {
	Industries   []Term `yaml:"industries"`
	Locations    []Term `yaml:"locations"`
	CompanySizes []Term `yaml:"company_sizes"`
}

// DefaultDictionaries returns the built-in keyword tables.
func DefaultDictionaries() *Dictionaries {
	return &Dictionaries{
		Industries: []Term{
			{"ai", "AI・人工知能"},
			{"人工知能", "AI・人工知能"},
			{"機械学習", "AI・人工知能"},
			{"dx", "DX・デジタル変革"},
			{"デジタル変革", "DX・デジタル変革"},
			{"iot", "IoT"},
			{"saas", "SaaS"},
			{"クラウド", "クラウド"},
			{"セキュリティ", "セキュリティ"},
			{"フィンテック", "フィンテック"},
			{"fintech", "フィンテック"},
			{"金融", "金融"},
			{"医療", "医療・ヘルスケア"},
			{"ヘルスケア", "医療・ヘルスケア"},
			{"教育", "教育"},
			{"edtech", "教育"},
			{"製造", "製造業"},
			{"小売", "小売・EC"},
			{"eコマース", "小売・EC"},
			{"通販", "小売・EC"},
			{"物流", "物流"},
			{"不動産", "不動産"},
			{"マーケティング", "マーケティング"},
			{"人材", "人材・HR"},
			{"採用", "人材・HR"},
			{"ロボット", "ロボティクス"},
			{"ブロックチェーン", "ブロックチェーン"},
			{"ゲーム", "ゲーム・エンタメ"},
		},
		Locations: []Term{
			{"東京", "東京都"},
			{"大阪", "大阪府"},
			{"名古屋", "愛知県"},
			{"愛知", "愛知県"},
			{"福岡", "福岡県"},
			{"北海道", "北海道"},
			{"札幌", "北海道"},
			{"京都府", "京都府"},
			{"京都市", "京都府"},
			{"神奈川", "神奈川県"},
			{"横浜", "神奈川県"},
			{"埼玉", "埼玉県"},
			{"千葉", "千葉県"},
			{"兵庫", "兵庫県"},
			{"神戸", "兵庫県"},
			{"広島", "広島県"},
			{"宮城", "宮城県"},
			{"仙台", "宮城県"},
			{"沖縄", "沖縄県"},
		},
		CompanySizes: []Term{
			{"スタートアップ", "startup"},
			{"startup", "startup"},
			{"ベンチャー", "startup"},
			{"中小企業", "small"},
			{"小規模", "small"},
			{"中堅", "medium"},
			{"中規模", "medium"},
			{"大企業", "large"},
			{"大手", "large"},
			{"エンタープライズ", "enterprise"},
		},
	}
}

// LoadDictionaries reads keyword tables from a YAML file. Tables missing from the
// file keep their built-in defaults.
func LoadDictionaries(path string) (*Dictionaries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionaries: %w", err)
	}
	var loaded Dictionaries
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse dictionaries: %w", err)
	}
	d := DefaultDictionaries()
	if len(loaded.Industries) > 0 {
		d.Industries = loaded.Industries
	}
	if len(loaded.Locations) > 0 {
		d.Locations = loaded.Locations
	}
	if len(loaded.CompanySizes) > 0 {
		d.CompanySizes = loaded.CompanySizes
	}
	if err := d.normalize(); err != nil {
		return nil, err
	}
	return d, nil
}

// normalize lower-cases keywords so they match normalized query text, and
// rejects empty entries.
func (d *Dictionaries) normalize() error {
	for name, table := range map[string][]Term{
		"industries":    d.Industries,
		"locations":     d.Locations,
		"company_sizes": d.CompanySizes,
	} {
		for i := range table {
			kw := Normalize(table[i].Keyword)
			if kw == "" || strings.TrimSpace(table[i].Value) == "" {
				return fmt.Errorf("dictionary %s: entry %d has empty keyword or value", name, i)
			}
			table[i].Keyword = kw
		}
	}
	for _, t := range d.CompanySizes {
		if _, ok := models.LookupSizeBucket(t.Value); !ok {
			return fmt.Errorf("dictionary company_sizes: unknown size %q for keyword %q", t.Value, t.Keyword)
		}
	}
	return nil
}
