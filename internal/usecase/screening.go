package usecase

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"telegram-ad-moderation/internal/config"
	"telegram-ad-moderation/internal/domain"
	"telegram-ad-moderation/internal/domain/model"
)

var (
	labelledPricePattern = regexp.MustCompile(`(?i)(ціна:|price:|цена:).*?(\d+[.,]?\d*)\s*(грн|k|к|тис|₴)?`)
	anyPricePattern      = regexp.MustCompile(`(?i)(\d+[.,]?\d*)\s*(грн|k|к|тис|₴)?`)
	thousand             = decimal.NewFromInt(1000)
)

// Screener applies the posting rules before a submission is stored.
type Screener struct {
	sellTags []string
	buyTags  []string
	minPrice decimal.Decimal
	maxLen   int
}

func NewScreener(cfg config.ModerationConfig) *Screener {
	return &Screener{
		sellTags: lowerAll(cfg.SellTags),
		buyTags:  lowerAll(cfg.BuyTags),
		minPrice: decimal.NewFromInt(cfg.MinPrice),
		maxLen:   cfg.MaxContentLength,
	}
}

// Screen returns the category and the stated price (nil when none is found).
// Failures are *domain.ValidationError.
func (s *Screener) Screen(content string) (model.Category, *decimal.Decimal, error) {
	content = strings.TrimSpace(content)
	if err := model.ValidateContent(content, s.maxLen); err != nil {
		return "", nil, err
	}

	lower := strings.ToLower(content)
	var category model.Category
	switch {
	case containsAny(lower, s.sellTags):
		category = model.CategorySell
	case containsAny(lower, s.buyTags):
		category = model.CategoryBuy
	default:
		return "", nil, domain.NewValidationError("screen.no_hashtag")
	}

	price := ExtractPrice(lower)
	if category == model.CategorySell && s.minPrice.IsPositive() {
		if price == nil || price.LessThan(s.minPrice) {
			return "", nil, domain.NewValidationError("screen.price_low", s.minPrice.String())
		}
	}
	return category, price, nil
}

// ExtractPrice returns the first number after a price label, otherwise the
// largest number in text. "k", "к" and "тис" multiply by a thousand.
func ExtractPrice(text string) *decimal.Decimal {
	text = strings.ToLower(text)
	if m := labelledPricePattern.FindStringSubmatch(text); m != nil {
		if p, ok := parseAmount(m[2], m[3]); ok {
			return &p
		}
	}

	var best *decimal.Decimal
	for _, m := range anyPricePattern.FindAllStringSubmatch(text, -1) {
		p, ok := parseAmount(m[1], m[2])
		if !ok {
			continue
		}
		if best == nil || p.GreaterThan(*best) {
			v := p
			best = &v
		}
	}
	if best == nil || !best.IsPositive() {
		return nil
	}
	return best
}

func parseAmount(num, suffix string) (decimal.Decimal, bool) {
	num = strings.TrimRight(strings.ReplaceAll(num, ",", "."), ".")
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, false
	}
	switch suffix {
	case "k", "к", "тис":
		d = d.Mul(thousand)
	}
	return d, true
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
