package domain

type GroupKind string

const (
	KindRoom    GroupKind = "room"
	KindNetwork GroupKind = "network"
)

const RoomCodeLen = 6
