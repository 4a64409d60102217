package trade

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PercentFeeDivisor is the scale of percentage fee components. A percent
// fee of PercentFeeDivisor corresponds to 100% of the traded amount.
const PercentFeeDivisor = 100000

// ShopFee is a per shop fee schedule. Flat components are in base units of
// the relevant mint, percentage components are scaled by PercentFeeDivisor.
type ShopFee struct {
	MakerFlatFee    uint64
	TakerFlatFee    uint64
	MakerPercentFee uint64
	TakerPercentFee uint64
}

// Validate ensures the percentage components are within range.
func (f ShopFee) Validate() error {
	if f.MakerPercentFee > PercentFeeDivisor {
		return errors.Wrap(ErrInvalidFeeSchedule, "maker percent fee exceeds divisor")
	}
	if f.TakerPercentFee > PercentFeeDivisor {
		return errors.Wrap(ErrInvalidFeeSchedule, "taker percent fee exceeds divisor")
	}
	return nil
}

// CalculateMakerFee returns the maker side fee for the provided amount.
func CalculateMakerFee(amount uint64, fee ShopFee) (uint64, error) {
	if err := fee.Validate(); err != nil {
		return 0, err
	}
	return fee.MakerFlatFee + percentFee(amount, fee.MakerPercentFee), nil
}

// CalculateTakerFee returns the taker side fee for the provided amount.
func CalculateTakerFee(amount uint64, fee ShopFee) (uint64, error) {
	if err := fee.Validate(); err != nil {
		return 0, err
	}
	return fee.TakerFlatFee + percentFee(amount, fee.TakerPercentFee), nil
}

// percentFee computes floor(amount * percent / PercentFeeDivisor) exactly.
// Rounding down always favors the trade participant over the fee collector.
func percentFee(amount, percent uint64) uint64 {
	product := decimal.NewFromUint64(amount).Mul(decimal.NewFromUint64(percent))
	quotient, _ := product.QuoRem(decimal.NewFromInt(PercentFeeDivisor), 0)
	return quotient.BigInt().Uint64()
}
