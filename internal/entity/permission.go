package entity

import "github.com/hatsu-chat/backend/pkg/enum"

// PermissionFlag is a bitset. Bit positions are stable and must never be
// reordered.
type PermissionFlag uint64

var (
	CreateInvites          = enum.New(PermissionFlag(1<<0), "create_invites")
	KickMembers            = enum.New(PermissionFlag(1<<1), "kick_members")
	BanMembers             = enum.New(PermissionFlag(1<<2), "ban_members")
	ManageChannels         = enum.New(PermissionFlag(1<<3), "manage_channels")
	ManageGuild            = enum.New(PermissionFlag(1<<4), "manage_guild")
	ManageRoles            = enum.New(PermissionFlag(1<<5), "manage_roles")
	ViewAuditLog           = enum.New(PermissionFlag(1<<6), "view_audit_log")
	ViewChannels           = enum.New(PermissionFlag(1<<7), "view_channels")
	SendMessages           = enum.New(PermissionFlag(1<<8), "send_messages")
	SendTTSMessages        = enum.New(PermissionFlag(1<<9), "send_tts_messages")
	ManageMessages         = enum.New(PermissionFlag(1<<10), "manage_messages")
	EmbedLinks             = enum.New(PermissionFlag(1<<11), "embed_links")
	AttachFiles            = enum.New(PermissionFlag(1<<12), "attach_files")
	ReadMessageHistory     = enum.New(PermissionFlag(1<<13), "read_message_history")
	MentionEveryone        = enum.New(PermissionFlag(1<<14), "mention_everyone")
	AddReactions           = enum.New(PermissionFlag(1<<15), "add_reactions")
	ManageNicknames        = enum.New(PermissionFlag(1<<16), "manage_nicknames")
	ManageEmojis           = enum.New(PermissionFlag(1<<17), "manage_emojis")
	ManageWebhooks         = enum.New(PermissionFlag(1<<18), "manage_webhooks")
	MoveMembers            = enum.New(PermissionFlag(1<<19), "move_members")
	Connect                = enum.New(PermissionFlag(1<<20), "connect")
	Speak                  = enum.New(PermissionFlag(1<<21), "speak")
	Stream                 = enum.New(PermissionFlag(1<<22), "stream")
	UseVoiceActivity       = enum.New(PermissionFlag(1<<23), "use_voice_activity")
	ChangeNickname         = enum.New(PermissionFlag(1<<24), "change_nickname")
	MuteMembers            = enum.New(PermissionFlag(1<<25), "mute_members")
	DeafenMembers          = enum.New(PermissionFlag(1<<26), "deafen_members")
	PrioritySpeaker        = enum.New(PermissionFlag(1<<27), "priority_speaker")
	ManageEvents           = enum.New(PermissionFlag(1<<28), "manage_events")
	ModerateMembers        = enum.New(PermissionFlag(1<<29), "moderate_members")
	ManageThreads          = enum.New(PermissionFlag(1<<30), "manage_threads")
	UseApplicationCommands = enum.New(PermissionFlag(1<<31), "use_application_commands")
)

// AllPermissions has every bit set, including bits which have no name yet. It
// is never persisted.
const AllPermissions = ^PermissionFlag(0)

// KnownPermissions is the union of every named bit. Stored bitsets never exceed
// it.
const KnownPermissions = PermissionFlag(1<<32 - 1)

// DefaultPermission is given to every member who has no role.
var DefaultPermission = CreateInvites | ViewChannels | SendMessages | AttachFiles |
	ReadMessageHistory | AddReactions | Connect | Speak | Stream | UseVoiceActivity |
	ChangeNickname

// HasFlag reports whether every bit of flag is set in bitset.
func HasFlag(bitset, flag PermissionFlag) bool {
	return bitset&flag == flag
}

// Names returns the registered names of the bits set in p, lowest bit first.
func (p PermissionFlag) Names() []string {
	names := []string{}
	for i := 0; i < 64; i++ {
		bit := PermissionFlag(1) << i
		if p&bit == 0 {
			continue
		}

		if name := enum.ToString(bit); name != "" {
			names = append(names, name)
		}
	}

	return names
}
