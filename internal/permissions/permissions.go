package permissions

import "sort"

// Pair is a permission overwrite. Allow and Deny are never merged into one value.
type Pair struct {
	Allow int64 `json:"allow"`
	Deny  int64 `json:"deny"`
}

// bit positions, fixed by the service
var bits = map[string]uint{
	"canCreateInstantInvite":  0,
	"manageRoles":             3,
	"manageChannels":          4,
	"readMessages":            10,
	"sendMessages":            11,
	"sendTTSMessages":         12,
	"manageMessages":          13,
	"embedLinks":              14,
	"attachFiles":             15,
	"readMessageHistory":      16,
	"mentionEveryone":         17,
	"voiceConnect":            20,
	"voiceSpeak":              21,
	"voiceMuteMembers":        22,
	"voiceDeafenMembers":      23,
	"voiceMoveMembers":        24,
	"voiceUseVoiceActivation": 25,
}

func Names() []string {
	names := make([]string, 0, len(bits))
	for name := range bits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Bit(name string) (uint, bool) {
	bit, exists := bits[name]
	return bit, exists
}

// Encode sets the bit of every recognized name in Allow when true and in Deny
// when false. Unrecognized names are ignored.
func Encode(capabilities map[string]bool) Pair {
	var pair Pair
	for name, value := range capabilities {
		bit, exists := bits[name]
		if !exists {
			continue
		}
		if value {
			pair.Allow |= 1 << bit
		} else {
			pair.Deny |= 1 << bit
		}
	}
	return pair
}

// Decode reports every recognized name as true iff its bit is set in Allow.
func Decode(pair Pair) map[string]bool {
	capabilities := make(map[string]bool, len(bits))
	for name, bit := range bits {
		capabilities[name] = pair.Allow&(1<<bit) != 0
	}
	return capabilities
}

func (p Pair) Has(name string) bool {
	bit, exists := bits[name]
	if !exists {
		return false
	}
	return p.Allow&(1<<bit) != 0
}

func (p Pair) Denies(name string) bool {
	bit, exists := bits[name]
	if !exists {
		return false
	}
	return p.Deny&(1<<bit) != 0
}
