package utils

import (
	"strconv"

	"github.com/twmb/murmur3"
)

func HashBytes(bytes ...[]byte) uint64 {
	hash := murmur3.New64()
	for _, b := range bytes {
		_, err := hash.Write(b)
		if err != nil {
			panic(err)
		}
	}
	return hash.Sum64()
}

// ContentID is a stable identifier for a payload, used as a tid when the
// caller does not supply one.
func ContentID(payload []byte) string {
	return strconv.FormatUint(HashBytes(payload), 16)
}
