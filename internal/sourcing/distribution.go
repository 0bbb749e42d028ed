package sourcing

// Quota 配额计算结果及实际产出
type Quota struct {
	Total          int `json:"total"`
	Percentage     int `json:"percentage"`
	Generation     int `json:"generation"`
	Store          int `json:"store"`
	EffectiveStore int `json:"effectiveStore"`
	Generated      int `json:"generated"`
	Stored         int `json:"stored"`
}

// Distribute 按生成比例拆分总题数，四舍五入（.5 向上）
func Distribute(total, percentage int) (generation, store int) {
	generation = (total*percentage + 50) / 100
	return generation, total - generation
}
