// pkg/model/snapshot.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing 单个市场的报价
type Listing struct {
	Marketplace string          `json:"marketplace"`
	Price       decimal.Decimal `json:"price"`
	URL         string          `json:"url,omitempty"`
}

// MarketSnapshot 某个商品最近一次抓取的全市场报价快照
// 抓取成功后整体替换，创建后只读；抓取失败时保留上一份快照
type MarketSnapshot struct {
	GoodName  string    `json:"good_name"`
	Listings  []Listing `json:"listings"`
	FetchedAt time.Time `json:"fetched_at"`
}

// LowestPrice 全市场最低报价，没有报价时 ok=false
func (s *MarketSnapshot) LowestPrice() (decimal.Decimal, bool) {
	if s == nil || len(s.Listings) == 0 {
		return decimal.Zero, false
	}
	lowest := s.Listings[0].Price
	for _, l := range s.Listings[1:] {
		if l.Price.LessThan(lowest) {
			lowest = l.Price
		}
	}
	return lowest, true
}

// HighestPrice 全市场最高报价，没有报价时 ok=false
func (s *MarketSnapshot) HighestPrice() (decimal.Decimal, bool) {
	if s == nil || len(s.Listings) == 0 {
		return decimal.Zero, false
	}
	highest := s.Listings[0].Price
	for _, l := range s.Listings[1:] {
		if l.Price.GreaterThan(highest) {
			highest = l.Price
		}
	}
	return highest, true
}
