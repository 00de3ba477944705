package lendstate

import "lendbridge/crypto"

var (
	accountPrefix   = []byte("lend/account/")
	allowancePrefix = []byte("lend/allowance/")
	pricePrefix     = []byte("lend/oracle/price/")
	lenderPrefix    = []byte("lend/pool/lender/")
	borrowerPrefix  = []byte("lend/pool/borrower/")
	offerPrefix     = []byte("lend/bridge/offer/")
	requestPrefix   = []byte("lend/bridge/request/")
	liquidityPrefix = []byte("lend/bridge/liquidity/")
)

func addressKey(prefix []byte, addr crypto.Address) []byte {
	raw := addr.Bytes()
	buf := make([]byte, len(prefix)+len(raw))
	copy(buf, prefix)
	copy(buf[len(prefix):], raw)
	return buf
}

func allowanceKey(owner, spender crypto.Address) []byte {
	ownerRaw := owner.Bytes()
	spenderRaw := spender.Bytes()
	buf := make([]byte, len(allowancePrefix)+len(ownerRaw)+1+len(spenderRaw))
	n := copy(buf, allowancePrefix)
	n += copy(buf[n:], ownerRaw)
	buf[n] = '/'
	n++
	copy(buf[n:], spenderRaw)
	return buf
}

func priceKey(asset string) []byte {
	buf := make([]byte, len(pricePrefix)+len(asset))
	copy(buf, pricePrefix)
	copy(buf[len(pricePrefix):], asset)
	return buf
}
