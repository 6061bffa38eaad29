package audit

import "github.com/aristath/lmt-kanban/internal/domain"

// BadgeKind identifies the single status badge a stock row renders with
type BadgeKind string

const (
	BadgeReuseCurrent  BadgeKind = "reuse_current"
	BadgeReuseUpcoming BadgeKind = "reuse_upcoming"
	BadgeInProduction  BadgeKind = "current"
	BadgeAwaitingProd  BadgeKind = "upcoming"
	BadgeAwaitingRetn  BadgeKind = "completed"
	BadgeLegacy        BadgeKind = "legacy"
	BadgeOutOfScope    BadgeKind = "out_of_scope"
)

// Badge is the resolved display badge of a row
type Badge struct {
	Kind  BadgeKind `json:"kind" msgpack:"kind"`
	Text  string    `json:"text" msgpack:"text"`
	Icon  string    `json:"icon" msgpack:"icon"`
	Color string    `json:"color" msgpack:"color"`
}

var (
	badgeReuseCurrent  = Badge{Kind: BadgeReuseCurrent, Text: "当前工单复用", Icon: "🔄", Color: "green"}
	badgeReuseUpcoming = Badge{Kind: BadgeReuseUpcoming, Text: "下工单复用", Icon: "🔄", Color: "blue"}
	badgeInProduction  = Badge{Kind: BadgeInProduction, Text: "当前生产", Icon: "🟢", Color: "green"}
	badgeAwaitingProd  = Badge{Kind: BadgeAwaitingProd, Text: "即将生产", Icon: "🔵", Color: "blue"}
	badgeAwaitingRetn  = Badge{Kind: BadgeAwaitingRetn, Text: "已完工待退", Icon: "🟠", Color: "orange"}
	badgeLegacy        = Badge{Kind: BadgeLegacy, Text: "历史遗留", Icon: "⚪", Color: "gray"}
	badgeOutOfScope    = Badge{Kind: BadgeOutOfScope, Text: "工单范围外", Icon: "⚠", Color: "gray"}
)

// BadgeRule matches a row and names the badge it resolves to
type BadgeRule struct {
	Name  string
	Match func(domain.InventoryStatusRow) bool
	Badge Badge
}

// BadgeRules is the precedence-ordered decision table. Reuse outranks raw
// status; legacy is reached only when no status label exists.
var BadgeRules = []BadgeRule{
	{Name: "reuse_current", Badge: badgeReuseCurrent, Match: func(r domain.InventoryStatusRow) bool {
		return r.ReuseLabel == domain.ReuseCurrent
	}},
	{Name: "reuse_upcoming", Badge: badgeReuseUpcoming, Match: func(r domain.InventoryStatusRow) bool {
		return r.ReuseLabel == domain.ReuseUpcoming
	}},
	{Name: "current", Badge: badgeInProduction, Match: func(r domain.InventoryStatusRow) bool {
		return r.WoStatusLabel == domain.WorkOrderCurrent
	}},
	{Name: "upcoming", Badge: badgeAwaitingProd, Match: func(r domain.InventoryStatusRow) bool {
		return r.WoStatusLabel == domain.WorkOrderUpcoming
	}},
	{Name: "completed", Badge: badgeAwaitingRetn, Match: func(r domain.InventoryStatusRow) bool {
		return r.WoStatusLabel == domain.WorkOrderCompleted
	}},
	{Name: "legacy", Badge: badgeLegacy, Match: func(r domain.InventoryStatusRow) bool {
		return r.IsLegacy
	}},
}

// ResolveBadge returns the first matching badge, or the out-of-scope badge
func ResolveBadge(row domain.InventoryStatusRow) Badge {
	for _, rule := range BadgeRules {
		if rule.Match(row) {
			return rule.Badge
		}
	}
	return badgeOutOfScope
}
