package market

// Depth 保存最优 bid/ask，0 表示暂无报价。
type Depth struct {
	Bid int64
	Ask int64
}

// Update 按字段独立更新：0 表示本次无数据，不覆盖已知价格。
func (d *Depth) Update(bid, ask int64) {
	if bid > 0 {
		d.Bid = bid
	}
	if ask > 0 {
		d.Ask = ask
	}
}

// Valid 两侧均有报价。
func (d Depth) Valid() bool {
	return d.Bid > 0 && d.Ask > 0
}

// DoubleMid 返回 bid+ask，即两倍中间价，避免整数除法丢失半个 tick。
func (d Depth) DoubleMid() int64 {
	return d.Bid + d.Ask
}
