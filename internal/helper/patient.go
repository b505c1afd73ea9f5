package helper

import (
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"
)

// 11 digit, format lokal: 010 / 011 / 012 / 015
var phoneRegex = regexp.MustCompile(`^01[0125][0-9]{8}$`)

func ValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

func PhoneLast4(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}

// DisplayName keeps the first name and the initial of the second one, e.g.
// "Mona Ahmed Ali" -> "Mona A.".
func DisplayName(fullName string) string {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	r, _ := utf8.DecodeRuneInString(parts[1])
	return parts[0] + " " + string(r) + "."
}

// PatientRef is a keyed digest so the 11-digit phone space cannot be
// brute-forced back from a public reference.
func PatientRef(secret []byte, clinicID int64, phone string) string {
	key := secret
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		// key length sudah dibatasi di atas
		panic(err)
	}
	h.Write([]byte(phone))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(clinicID, 10)))
	return hex.EncodeToString(h.Sum(nil))[:32]
}
