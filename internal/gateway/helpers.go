package gateway

import (
	"math/big"
	"reflect"
	"sort"

	lb "github.com/liquidation-bot/liquidation-bot"
)

func newBig(v uint64) *big.Int {
	if v == 0 {
		return nil // FilterQuery treats a nil FromBlock as "earliest"; callers pass 0 only for genesis
	}
	return new(big.Int).SetUint64(v)
}

func isZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

// extractLegs reads the four position-size fields out of a decoded
// PositionChanged event, regardless of whether they arrived as flat v4
// fields or nested inside the v4.1 "cpd" tuple. abi.UnpackIntoMap
// generates the tuple's Go struct type via reflection at unpack time, so
// this reads its fields by name through reflect rather than asserting a
// concrete struct type.
func extractLegs(params map[string]interface{}) (prevAsset, prevStable, newAsset, newStable *big.Int) {
	get := func(key string) *big.Int {
		v, _ := params[key].(*big.Int)
		return v
	}

	if cpd, ok := params["cpd"]; ok {
		v := reflect.ValueOf(cpd)
		field := func(name string) *big.Int {
			f := v.FieldByName(name)
			if !f.IsValid() {
				return nil
			}
			n, _ := f.Interface().(*big.Int)
			return n
		}
		return field("StartAsset"), field("StartStable"), field("TotalAsset"), field("TotalStable")
	}

	return get("previousAsset"), get("previousStable"), get("newAsset"), get("newStable")
}

// sortPositionChanges orders events by (block, txIndex) ascending, the
// ordering spec §4.1 requires FetchPositionEvents to return regardless of
// the order go-ethereum's FilterLogs happened to yield them in.
func sortPositionChanges(events []lb.PositionChange) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Before(events[j])
	})
}
