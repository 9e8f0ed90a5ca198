package session

import "fmt"

// Fingerprint hashes the parameters that must match between the transmitter
// and receiver runs. Stored result records carry it, so a tx/rx config
// mismatch shows up when comparing run history instead of as a mystery BER.
func (p Params) Fingerprint() uint16 {
	canon := fmt.Sprintf("%g|%g|%g|%g|%g|%s|%d|%g|%g",
		p.Freq0, p.Freq1, p.BitDuration, p.RefreshRate, p.CaptureRate,
		p.Preamble, p.PayloadBits, p.BaseAlpha, p.DeltaAlpha)
	return crc16([]byte(canon))
}

// MatchFingerprint reports whether checksum matches this parameter set.
func (p Params) MatchFingerprint(checksum uint16) bool {
	return p.Fingerprint() == checksum
}

func crc16(input []byte) uint16 {
	var crc uint16 = 0xFFFF
	for _, b := range input {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
