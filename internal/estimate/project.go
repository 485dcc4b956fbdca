package estimate

import "fmt"

// Project rescales format f's estimate to the target precision. Only
// parameter-derived estimates scale linearly with width; sampled sizes
// return ErrNotProjectable along with the unscaled value.
func (r *Result) Project(f Format, target DType) (uint64, error) {
	be := r.Bucket(f)
	if be.Method != MethodParams || be.DType == nil || be.DType.Bits == 0 {
		return be.Bytes, fmt.Errorf("%w: %s size was %s", ErrNotProjectable, f, be.Method)
	}
	return be.Bytes * uint64(target.Bits) / uint64(be.DType.Bits), nil
}
