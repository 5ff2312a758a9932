// Package chat implements the internal message board shared by agents and
// admins.
//
// Messages are rows of {Timestamp, Sender, Receiver, Message, ReplyTo}. The
// timestamp doubles as the message identifier for replies and deletion. Agents
// always write to the Admin party and admins to the Agent party; there are no
// private conversations.
//
// Store has two implementations: SheetsStore keeps messages in a worksheet of
// the collections spreadsheet, MemoryStore keeps them in process memory.
package chat
