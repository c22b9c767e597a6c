package gateway

import (
	"go.uber.org/zap"

	"etf-market-maker/market"
)

// LoggingGateway 只记录指令不发送，用于 dry-run。
type LoggingGateway struct {
	log *zap.Logger
}

func NewLoggingGateway(log *zap.Logger) *LoggingGateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingGateway{log: log.Named("dryrun")}
}

func (g *LoggingGateway) InsertOrder(id int64, side market.Side, price, volume int64, lifespan market.Lifespan) {
	g.log.Info("insert order",
		zap.Int64("order_id", id),
		zap.Stringer("side", side),
		zap.String("price", FromCents(price).StringFixed(2)),
		zap.Int64("volume", volume),
		zap.Stringer("lifespan", lifespan))
}

func (g *LoggingGateway) CancelOrder(id int64) {
	g.log.Info("cancel order", zap.Int64("order_id", id))
}

func (g *LoggingGateway) HedgeOrder(id int64, side market.Side, price, volume int64) {
	g.log.Info("hedge order",
		zap.Int64("order_id", id),
		zap.Stringer("side", side),
		zap.String("price", FromCents(price).StringFixed(2)),
		zap.Int64("volume", volume))
}
