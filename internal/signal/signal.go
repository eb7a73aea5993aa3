// Package signal defines the contract between indicator/prediction
// collaborators (out of scope here, per Non-goals) and this platform's
// position layer. It carries no indicator math or ML: Generator is an
// interface a collaborator implements, and Consumer wires its signals to
// position open/close calls over the Event Bus's signals.generated
// stream (§2 item 10, "observer wiring... pure producer/consumer model").
package signal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/internal/eventbus"
	"github.com/cryptospreadedge/platform/internal/position"
	"github.com/cryptospreadedge/platform/pkg/errors"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// Type mirrors the original signal_generator.py's SignalType enum, kept
// only as the vocabulary Consumer understands.
type Type string

const (
	TypeBuy        Type = "buy"
	TypeSell       Type = "sell"
	TypeHold       Type = "hold"
	TypeStrongBuy  Type = "strong_buy"
	TypeStrongSell Type = "strong_sell"
	TypeExitLong   Type = "exit_long"
	TypeExitShort  Type = "exit_short"
)

// TradingSignal is the payload a Generator produces. Strength/Confidence
// are opaque floats handed down from whatever indicator composite produced
// them; this package does not interpret their derivation.
type TradingSignal struct {
	Symbol     string
	Type       Type
	Strength   float64
	Confidence float64
	Price      decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	Size       decimal.Decimal
	Timestamp  time.Time
}

// Generator is implemented by an indicator/prediction collaborator. This
// platform never implements it itself.
type Generator interface {
	Generate(ctx context.Context, symbol string) ([]TradingSignal, error)
}

// Consumer turns TradingSignals into position open/close calls and
// publishes the resulting positions onto positions.opened and
// positions.closed so other consumers (backtesting, ops) can observe them
// without coupling to Generator.
type Consumer struct {
	positions *position.Manager
	sizing    position.SizingStrategy
	maxSize   decimal.Decimal
	bus       *eventbus.Bus
	logger    *logger.Logger
}

func NewConsumer(positions *position.Manager, sizing position.SizingStrategy, maxSize decimal.Decimal, bus *eventbus.Bus, log *logger.Logger) *Consumer {
	return &Consumer{
		positions: positions,
		sizing:    sizing,
		maxSize:   maxSize,
		bus:       bus,
		logger:    log.Named("signal"),
	}
}

// Handle processes one signal: BUY/STRONG_BUY opens a long, SELL/STRONG_SELL
// opens a short, EXIT_LONG/EXIT_SHORT closes the open position for the
// symbol, HOLD is a no-op. It mirrors the original's entry/exit split
// between position opening and an exit signal/stop (data model note on
// Position's lifecycle).
func (c *Consumer) Handle(ctx context.Context, sig TradingSignal) error {
	switch sig.Type {
	case TypeBuy, TypeStrongBuy:
		return c.open(ctx, sig, domain.PositionLong)
	case TypeSell, TypeStrongSell:
		return c.open(ctx, sig, domain.PositionShort)
	case TypeExitLong, TypeExitShort:
		return c.close(ctx, sig, "signal_exit")
	case TypeHold:
		return nil
	default:
		return errors.New(errors.InvalidError, "unknown signal type "+string(sig.Type))
	}
}

func (c *Consumer) open(ctx context.Context, sig TradingSignal, side domain.PositionSide) error {
	size := sig.Size
	if size.IsZero() {
		size = c.sizing.Size(c.positions.PortfolioValue(), c.maxSize)
	}

	pos := c.positions.Open(sig.Symbol, side, size, sig.Price, sig.StopLoss, sig.TakeProfit)
	c.logger.Info("position opened from signal - symbol: %s, side: %s, size: %s, signal_type: %s", pos.Symbol, side, size.String(), sig.Type)
	return c.publish(ctx, eventbus.StreamPositionsOpened, pos)
}

func (c *Consumer) close(ctx context.Context, sig TradingSignal, reason string) error {
	pos, _, ok := c.positions.Close(sig.Symbol, sig.Price, reason)
	if !ok {
		return nil // no open position for this symbol; nothing to exit
	}
	return c.publish(ctx, eventbus.StreamPositionsClosed, pos)
}

func (c *Consumer) publish(ctx context.Context, stream string, pos domain.Position) error {
	if c.bus == nil {
		return nil
	}
	payload := map[string]interface{}{
		"position_id": pos.ID,
		"symbol":      pos.Symbol,
		"side":        string(pos.Side),
		"size":        pos.Size.String(),
		"entry_px":    pos.EntryPx.String(),
		"timestamp":   time.Now().Unix(),
	}
	return c.bus.Publish(ctx, stream, payload)
}

// FromSignalsStream adapts an eventbus.Handler consuming signals.generated
// into calls on Handle, decoding the wire fields a Generator's mirror
// publisher would have encoded.
func (c *Consumer) FromSignalsStream(ctx context.Context, values map[string]interface{}) error {
	sig, err := decodeSignal(values)
	if err != nil {
		return err
	}
	return c.Handle(ctx, sig)
}

func decodeSignal(values map[string]interface{}) (TradingSignal, error) {
	symbol, _ := values["symbol"].(string)
	typ, _ := values["type"].(string)
	if symbol == "" || typ == "" {
		return TradingSignal{}, errors.New(errors.InvalidError, "signal message missing symbol/type")
	}

	sig := TradingSignal{
		Symbol:    symbol,
		Type:      Type(typ),
		Timestamp: time.Now(),
	}
	if raw, ok := values["price"]; ok {
		sig.Price = decodeDecimal(raw)
	}
	if raw, ok := values["stop_loss"]; ok {
		sig.StopLoss = decodeDecimal(raw)
	}
	if raw, ok := values["take_profit"]; ok {
		sig.TakeProfit = decodeDecimal(raw)
	}
	if raw, ok := values["size"]; ok {
		sig.Size = decodeDecimal(raw)
	}
	return sig, nil
}

func decodeDecimal(raw interface{}) decimal.Decimal {
	switch v := raw.(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(v)
	default:
		return decimal.Zero
	}
}
