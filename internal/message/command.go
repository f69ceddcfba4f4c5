package message

// CommandType identifies one of the 24 operations in the closed command
// catalogue. The constant value is the wire opcode; opcodes are banded by
// priority tier (0x000x Emergency through 0x004x Low).
type CommandType uint16

const (
	// Emergency tier (0x0001-0x000F): immediate response, 1ms contract.
	EmergencyAbort            CommandType = 0x0001
	EmergencyHalt             CommandType = 0x0002
	ActivateSafeMode          CommandType = 0x0003
	EmergencyPowerDown        CommandType = 0x0004
	EmergencyAttitudeRecovery CommandType = 0x0005

	// Critical tier (0x0010-0x001F): mission-critical, 10ms contract.
	AbortMission       CommandType = 0x0010
	HaltSubsystem      CommandType = 0x0011
	CollisionAvoidance CommandType = 0x0012
	AttitudeControl    CommandType = 0x0013
	SwitchCommBackup   CommandType = 0x0014
	ResetSystem        CommandType = 0x0015

	// High tier (0x0020-0x002F): important operations, 100ms contract.
	UpdateOrbit         CommandType = 0x0020
	ReconfigureComm     CommandType = 0x0021
	Deploy              CommandType = 0x0022
	StartDataCollection CommandType = 0x0023
	ConfigurePower      CommandType = 0x0024

	// Medium tier (0x0030-0x003F): normal operations, 1s contract.
	RequestTelemetry    CommandType = 0x0030
	UpdateConfig        CommandType = 0x0031
	CalibrateInstrument CommandType = 0x0032
	StoreData           CommandType = 0x0034

	// Low tier (0x0040-0x004F): housekeeping, 10s contract.
	SendStatus         CommandType = 0x0040
	UpdateTime         CommandType = 0x0041
	PerformMaintenance CommandType = 0x0042
	LogEvent           CommandType = 0x0043
)

var commandNames = map[CommandType]string{
	EmergencyAbort:            "emergencyAbort",
	EmergencyHalt:             "emergencyHalt",
	ActivateSafeMode:          "activateSafeMode",
	EmergencyPowerDown:        "emergencyPowerDown",
	EmergencyAttitudeRecovery: "emergencyAttitudeRecovery",
	AbortMission:              "abortMission",
	HaltSubsystem:             "haltSubsystem",
	CollisionAvoidance:        "collisionAvoidance",
	AttitudeControl:           "attitudeControl",
	SwitchCommBackup:          "switchCommBackup",
	ResetSystem:               "resetSystem",
	UpdateOrbit:               "updateOrbit",
	ReconfigureComm:           "reconfigureComm",
	Deploy:                    "deploy",
	StartDataCollection:       "startDataCollection",
	ConfigurePower:            "configurePower",
	RequestTelemetry:          "requestTelemetry",
	UpdateConfig:              "updateConfig",
	CalibrateInstrument:       "calibrateInstrument",
	StoreData:                 "storeData",
	SendStatus:                "sendStatus",
	UpdateTime:                "updateTime",
	PerformMaintenance:        "performMaintenance",
	LogEvent:                  "logEvent",
}

// Commands returns the full catalogue in opcode order.
func Commands() []CommandType {
	out := make([]CommandType, 0, len(commandNames))
	for _, c := range []CommandType{
		EmergencyAbort, EmergencyHalt, ActivateSafeMode, EmergencyPowerDown,
		EmergencyAttitudeRecovery,
		AbortMission, HaltSubsystem, CollisionAvoidance, AttitudeControl,
		SwitchCommBackup, ResetSystem,
		UpdateOrbit, ReconfigureComm, Deploy, StartDataCollection, ConfigurePower,
		RequestTelemetry, UpdateConfig, CalibrateInstrument, StoreData,
		SendStatus, UpdateTime, PerformMaintenance, LogEvent,
	} {
		out = append(out, c)
	}
	return out
}

// Valid reports whether c is a member of the catalogue.
func (c CommandType) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// Priority returns the tier this command is permanently bound to. The binding
// follows the opcode band and is fixed at definition time.
func (c CommandType) Priority() Priority {
	switch c >> 4 {
	case 0x000:
		return Emergency
	case 0x001:
		return Critical
	case 0x002:
		return High
	case 0x003:
		return Medium
	default:
		return Low
	}
}

// Opcode returns the wire discriminant for this command.
func (c CommandType) Opcode() uint16 {
	return uint16(c)
}

// RequiresConfirmation reports whether the command is destructive enough to
// need an explicit confirmation code before execution.
func (c CommandType) RequiresConfirmation() bool {
	switch c {
	case EmergencyAbort, EmergencyHalt, ActivateSafeMode,
		AbortMission, CollisionAvoidance, ResetSystem, Deploy:
		return true
	}
	return false
}

func (c CommandType) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknownCommand"
}
