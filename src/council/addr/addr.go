package addr

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/OneOfOne/xxhash"
	"golang.org/x/crypto/blake2b"
)

// Namespace tags, one per record kind.
const (
	NsRegistry = "dao"
	NsTreasury = "treasury"
	NsMember   = "member"
	NsProposal = "proposal"
	NsVote     = "vote"
)

// Derive maps a namespace tag and its identifying fields to a storage key.
// Layout follows substrate map keys: Twox128(namespace) followed by
// Blake2_128Concat of every part, each part length-prefixed so that
// ("ab","c") and ("a","bc") never collide.
func Derive(namespace string, parts ...[]byte) string {
	key := Twox128([]byte(namespace))
	for _, p := range parts {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(p)))
		data := append(n[:], p...)
		key = append(key, Blake2_128(data)...)
	}
	// The concat tail would make keys unbounded; fold it to a fixed width.
	sum := blake2b.Sum256(key)
	return "0x" + hex.EncodeToString(sum[:])
}

func Registry(id uint64) string {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], id)
	return Derive(NsRegistry, b[:])
}

func Treasury(registry string) string {
	return Derive(NsTreasury, []byte(registry))
}

func Member(owner, registry string) string {
	return Derive(NsMember, []byte(owner), []byte(registry))
}

func Proposal(title, registry string) string {
	return Derive(NsProposal, []byte(title), []byte(registry))
}

// RoleChange uses the operation tag itself as namespace.
func RoleChange(opTag, member, registry string) string {
	return Derive(opTag, []byte(member), []byte(registry))
}

func Vote(voterMember, target string) string {
	return Derive(NsVote, []byte(voterMember), []byte(target))
}

// Twox128 implements the TwoX 128-bit hash
func Twox128(data []byte) []byte {
	hash1 := xxhash.NewS64(0)
	hash1.Write(data)
	hash2 := xxhash.NewS64(1)
	hash2.Write(data)

	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[0:], hash1.Sum64())
	binary.LittleEndian.PutUint64(out[8:], hash2.Sum64())
	return out
}

// Blake2_128 returns the 16-byte blake2b digest.
func Blake2_128(data []byte) []byte {
	h, _ := blake2b.New(16, nil)
	h.Write(data)
	return h.Sum(nil)
}
