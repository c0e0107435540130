package state

import (
	"encoding/hex"
	"strconv"
)

const (
	keyLotteryParams   = "lottery/params"
	keyLotteryEpoch    = "lottery/epoch"
	keyLotterySupply   = "lottery/supply"
	keyLotteryIndex    = "lottery/accounts"
	keyLotteryDraws    = "lottery/draws"
	prefixLotteryDraw  = "lottery/draw/"
	prefixLotteryAccnt = "lottery/account/"
)

func lotteryAccountKey(addr [20]byte) []byte {
	return []byte(prefixLotteryAccnt + hex.EncodeToString(addr[:]))
}

func lotteryDrawKey(requestID uint64) []byte {
	return []byte(prefixLotteryDraw + strconv.FormatUint(requestID, 10))
}
