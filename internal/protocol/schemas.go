package protocol

func init() {
	// Clientbound, status and login.
	register(Clientbound, Status, "StatusResponse", Field{"json", FieldString})
	register(Clientbound, Status, "PongResponse", Field{"payload", FieldLong})
	register(Clientbound, Login, "Disconnect", Field{"reason", FieldString})
	register(Clientbound, Login, "LoginSuccess",
		Field{"uuid", FieldUUID},
		Field{"username", FieldString},
		Field{"properties", FieldVarInt},
	)

	// Clientbound, configuration.
	register(Clientbound, Configuration, "PluginMessage",
		Field{"channel", FieldString},
		Field{"data", FieldRaw},
	)
	register(Clientbound, Configuration, "Disconnect", Field{"reason", FieldText})
	register(Clientbound, Configuration, "FinishConfiguration")
	register(Clientbound, Configuration, "FeatureFlags", Field{"flags", FieldStringArray})

	// Clientbound, play.
	register(Clientbound, Play, "SpawnEntity",
		Field{"entityId", FieldVarInt},
		Field{"entityUuid", FieldUUID},
		Field{"type", FieldVarInt},
		Field{"x", FieldDouble},
		Field{"y", FieldDouble},
		Field{"z", FieldDouble},
		Field{"pitch", FieldAngle},
		Field{"yaw", FieldAngle},
		Field{"headYaw", FieldAngle},
		Field{"data", FieldVarInt},
		Field{"velocityX", FieldShort},
		Field{"velocityY", FieldShort},
		Field{"velocityZ", FieldShort},
	)
	register(Clientbound, Play, "AcknowledgeBlockChange", Field{"sequenceId", FieldVarInt})
	register(Clientbound, Play, "EntityAnimation",
		Field{"entityId", FieldVarInt},
		Field{"animation", FieldByte},
	)
	register(Clientbound, Play, "BlockUpdate",
		Field{"location", FieldPosition},
		Field{"blockId", FieldVarInt},
	)
	register(Clientbound, Play, "ChangeDifficulty",
		Field{"difficulty", FieldByte},
		Field{"locked", FieldBool},
	)
	register(Clientbound, Play, "Disconnect", Field{"reason", FieldText})
	register(Clientbound, Play, "GameEvent",
		Field{"event", FieldByte},
		Field{"value", FieldFloat},
	)
	register(Clientbound, Play, "KeepAlive", Field{"keepAliveId", FieldLong})
	register(Clientbound, Play, "WorldEvent",
		Field{"event", FieldInt},
		Field{"location", FieldPosition},
		Field{"data", FieldInt},
		Field{"disableRelativeVolume", FieldBool},
	)
	register(Clientbound, Play, "Login",
		Field{"entityId", FieldInt},
		Field{"isHardcore", FieldBool},
		Field{"dimensionNames", FieldStringArray},
		Field{"maxPlayers", FieldVarInt},
		Field{"viewDistance", FieldVarInt},
		Field{"simulationDistance", FieldVarInt},
		Field{"reducedDebugInfo", FieldBool},
		Field{"enableRespawnScreen", FieldBool},
		Field{"doLimitedCrafting", FieldBool},
		Field{"dimensionType", FieldString},
		Field{"dimensionName", FieldString},
		Field{"hashedSeed", FieldLong},
		Field{"gameMode", FieldByte},
		Field{"previousGameMode", FieldSignedByte},
		Field{"isDebug", FieldBool},
		Field{"isFlat", FieldBool},
		Field{"hasDeathLocation", FieldBool},
		Field{"deathDimensionName", FieldString},
		Field{"deathLocation", FieldPosition},
		Field{"portalCooldown", FieldVarInt},
	)
	register(Clientbound, Play, "UpdateEntityPosition",
		Field{"entityId", FieldVarInt},
		Field{"deltaX", FieldShort},
		Field{"deltaY", FieldShort},
		Field{"deltaZ", FieldShort},
		Field{"onGround", FieldBool},
	)
	register(Clientbound, Play, "UpdateEntityPositionAndRotation",
		Field{"entityId", FieldVarInt},
		Field{"deltaX", FieldShort},
		Field{"deltaY", FieldShort},
		Field{"deltaZ", FieldShort},
		Field{"yaw", FieldAngle},
		Field{"pitch", FieldAngle},
		Field{"onGround", FieldBool},
	)
	register(Clientbound, Play, "UpdateEntityRotation",
		Field{"entityId", FieldVarInt},
		Field{"yaw", FieldAngle},
		Field{"pitch", FieldAngle},
		Field{"onGround", FieldBool},
	)
	register(Clientbound, Play, "PingResponse", Field{"payload", FieldLong})
	register(Clientbound, Play, "PlayerInfoRemove", Field{"uuids", FieldUUIDArray})
	register(Clientbound, Play, "SynchronizePlayerPosition",
		Field{"position", FieldVec3},
		Field{"rotation", FieldRotation},
		Field{"flags", FieldByte},
		Field{"teleportId", FieldVarInt},
	)
	register(Clientbound, Play, "RemoveEntities", Field{"entityIds", FieldVarIntArray})
	register(Clientbound, Play, "SetHeadRotation",
		Field{"entityId", FieldVarInt},
		Field{"headYaw", FieldAngle},
	)
	register(Clientbound, Play, "SetCenterChunk",
		Field{"chunkX", FieldVarInt},
		Field{"chunkZ", FieldVarInt},
	)
	register(Clientbound, Play, "SetEntityMetadata",
		Field{"entityId", FieldVarInt},
		Field{"metadata", FieldRaw},
	)
	register(Clientbound, Play, "SystemChatMessage",
		Field{"content", FieldText},
		Field{"overlay", FieldBool},
	)
	register(Clientbound, Play, "EntityEffect",
		Field{"entityId", FieldVarInt},
		Field{"effectId", FieldVarInt},
		Field{"amplifier", FieldByte},
		Field{"duration", FieldVarInt},
		Field{"flags", FieldByte},
		Field{"hasFactorData", FieldBool},
	)

	// Serverbound.
	register(Serverbound, Handshaking, "Handshake",
		Field{"protocolVersion", FieldVarInt},
		Field{"serverAddress", FieldString},
		Field{"serverPort", FieldUShort},
		Field{"nextState", FieldVarInt},
	)
	register(Serverbound, Status, "StatusRequest")
	register(Serverbound, Status, "PingRequest", Field{"payload", FieldLong})
	register(Serverbound, Login, "LoginStart",
		Field{"name", FieldString},
		Field{"playerUuid", FieldUUID},
	)
	register(Serverbound, Login, "LoginAcknowledged")

	clientInformation := []Field{
		{"locale", FieldString},
		{"viewDistance", FieldByte},
		{"chatMode", FieldVarInt},
		{"chatColors", FieldBool},
		{"displayedSkinParts", FieldByte},
		{"mainHand", FieldVarInt},
		{"enableTextFiltering", FieldBool},
		{"allowServerListings", FieldBool},
	}
	pluginMessage := []Field{
		{"channel", FieldString},
		{"data", FieldRaw},
	}
	register(Serverbound, Configuration, "ClientInformation", clientInformation...)
	register(Serverbound, Configuration, "PluginMessage", pluginMessage...)
	register(Serverbound, Configuration, "AcknowledgeFinishConfiguration")
	register(Serverbound, Configuration, "KeepAlive", Field{"keepAliveId", FieldLong})

	register(Serverbound, Play, "ConfirmTeleportation", Field{"teleportId", FieldVarInt})
	// Signature and acknowledgement fields follow the message; offline mode ignores them.
	register(Serverbound, Play, "ChatMessage", Field{"message", FieldString})
	register(Serverbound, Play, "ChunkBatchReceived", Field{"chunksPerTick", FieldFloat})
	register(Serverbound, Play, "ClientInformation", clientInformation...)
	register(Serverbound, Play, "PluginMessage", pluginMessage...)
	register(Serverbound, Play, "Interact",
		Field{"entityId", FieldVarInt},
		Field{"type", FieldVarInt},
	)
	register(Serverbound, Play, "KeepAlive", Field{"keepAliveId", FieldLong})
	register(Serverbound, Play, "SetPlayerPosition",
		Field{"position", FieldVec3},
		Field{"onGround", FieldBool},
	)
	register(Serverbound, Play, "SetPlayerPositionAndRotation",
		Field{"position", FieldVec3},
		Field{"rotation", FieldRotation},
		Field{"onGround", FieldBool},
	)
	register(Serverbound, Play, "SetPlayerRotation",
		Field{"rotation", FieldRotation},
		Field{"onGround", FieldBool},
	)
	register(Serverbound, Play, "SetPlayerOnGround", Field{"onGround", FieldBool})
	register(Serverbound, Play, "PingRequest", Field{"payload", FieldLong})
	register(Serverbound, Play, "PlayerAction",
		Field{"status", FieldVarInt},
		Field{"location", FieldPosition},
		Field{"face", FieldByte},
		Field{"sequence", FieldVarInt},
	)
	register(Serverbound, Play, "PlayerCommand",
		Field{"entityId", FieldVarInt},
		Field{"actionId", FieldVarInt},
		Field{"jumpBoost", FieldVarInt},
	)
	register(Serverbound, Play, "SetHeldItem", Field{"slot", FieldShort})
	register(Serverbound, Play, "SetCreativeModeSlot",
		Field{"slot", FieldShort},
		Field{"item", FieldRaw},
	)
	register(Serverbound, Play, "SwingArm", Field{"hand", FieldVarInt})
	register(Serverbound, Play, "UseItemOn",
		Field{"hand", FieldVarInt},
		Field{"location", FieldPosition},
		Field{"face", FieldVarInt},
		Field{"cursorX", FieldFloat},
		Field{"cursorY", FieldFloat},
		Field{"cursorZ", FieldFloat},
		Field{"insideBlock", FieldBool},
		Field{"sequence", FieldVarInt},
	)
}
