package updater

import (
	"fmt"
	"time"

	"github.com/moffa90/go-fwupdate/config"
	"github.com/moffa90/go-fwupdate/digest"
	"github.com/moffa90/go-fwupdate/partition"
	"github.com/moffa90/go-fwupdate/protocol"
	"github.com/moffa90/go-fwupdate/signature"
)

// FirmwareUpdater stages, verifies and arms firmware images for the
// bootloader. It is the only writer of the state partition.
//
// FirmwareUpdater holds no locks; callers must not run two operations on
// the same device at once.
type FirmwareUpdater struct {
	dfu    partition.Partition
	state  partition.Partition
	config Config
}

// Snapshot is a decoded view of both state partition fields.
type Snapshot struct {
	// State is the application-visible projection of the magic field
	State protocol.State

	// Magic classifies the raw magic field
	Magic protocol.Magic

	// Dirty is set when the progress field is not erased, meaning a
	// transition was started and may have been interrupted
	Dirty bool
}

// New creates a FirmwareUpdater for the given DFU and state partitions.
// Panics if the partitions overlap.
//
// Example:
//
//	u := updater.New(
//	    partition.New(0x10000, 0x20000), // dfu
//	    partition.New(0x0000, 0x1000),   // state
//	    updater.WithBackend(signature.Ed25519{}),
//	)
func New(dfu, state partition.Partition, opts ...Option) *FirmwareUpdater {
	if dfu.Overlaps(state) {
		panic(fmt.Sprintf("dfu partition %s overlaps state partition %s", dfu, state))
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &FirmwareUpdater{
		dfu:    dfu,
		state:  state,
		config: cfg,
	}
}

// NewFromConfig creates a FirmwareUpdater from a loaded configuration file.
// The configured signature backend is applied before opts, so opts can
// still override it.
func NewFromConfig(cfg *config.Config, opts ...Option) (*FirmwareUpdater, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	name := cfg.Signature.Backend
	if name == "" {
		name = config.DefaultBackend
	}
	backend, err := signature.Lookup(name)
	if err != nil {
		return nil, err
	}

	dfu, state := cfg.Partitions.DFU.Partition(), cfg.Partitions.State.Partition()
	return New(dfu, state, append([]Option{WithBackend(backend)}, opts...)...), nil
}

// DFUPartition returns the partition holding the staged image.
func (u *FirmwareUpdater) DFUPartition() partition.Partition {
	return u.dfu
}

// StatePartition returns the partition holding the magic and progress fields.
func (u *FirmwareUpdater) StatePartition() partition.Partition {
	return u.state
}

// Backend returns the active signature backend.
func (u *FirmwareUpdater) Backend() signature.Backend {
	return u.config.Backend
}

func checkAligned(ops flashOps, aligned []byte) {
	if len(aligned) != ops.writeSize() {
		panic(fmt.Sprintf("aligned buffer must be %d bytes, got %d", ops.writeSize(), len(aligned)))
	}
}

func (u *FirmwareUpdater) getState(ops flashOps, aligned []byte) (protocol.State, error) {
	checkAligned(ops, aligned)

	if err := ops.read(u.state, protocol.MagicOffset, aligned); err != nil {
		return protocol.StateBoot, err
	}
	return protocol.ParseState(aligned), nil
}

func (u *FirmwareUpdater) inspect(ops flashOps, aligned []byte) (Snapshot, error) {
	checkAligned(ops, aligned)

	if err := ops.read(u.state, protocol.MagicOffset, aligned); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		State: protocol.ParseState(aligned),
		Magic: protocol.Classify(aligned),
	}

	if err := ops.read(u.state, protocol.ProgressOffset(ops.writeSize()), aligned); err != nil {
		return Snapshot{}, err
	}
	snap.Dirty = protocol.IsDirty(aligned)

	return snap, nil
}

// setMagic moves the state partition to magic. The order of the steps is
// what the bootloader relies on after a power loss:
//  1. magic already in place: nothing is written
//  2. progress field cleared (skipped if an earlier attempt already did)
//  3. state partition erased
//  4. magic written
func (u *FirmwareUpdater) setMagic(ops flashOps, aligned []byte, magic byte) error {
	checkAligned(ops, aligned)

	if err := ops.read(u.state, protocol.MagicOffset, aligned); err != nil {
		return err
	}
	if protocol.Uniform(aligned, magic) {
		u.logDebug("magic already set", "magic", fmt.Sprintf("0x%02X", magic))
		return nil
	}

	progress := protocol.ProgressOffset(ops.writeSize())
	if err := ops.read(u.state, progress, aligned); err != nil {
		return err
	}

	if protocol.IsDirty(aligned) {
		u.logInfo("resuming interrupted state transition", "magic", fmt.Sprintf("0x%02X", magic))
	} else {
		fill(aligned, protocol.ProgressDirty)
		if err := ops.write(u.state, progress, aligned); err != nil {
			return err
		}
		u.logDebug("progress marked dirty")
	}

	if err := ops.wipe(u.state); err != nil {
		return err
	}

	fill(aligned, magic)
	if err := ops.write(u.state, protocol.MagicOffset, aligned); err != nil {
		return err
	}

	u.logInfo("magic written", "magic", fmt.Sprintf("0x%02X", magic), "state", u.state.String())
	return nil
}

// hash streams exactly updateLen bytes of the DFU partition through a
// fresh digest. Whole chunks are read from flash, but bytes past
// updateLen are never hashed.
func (u *FirmwareUpdater) hash(ops flashOps, updateLen uint32, chunkBuf []byte, newDigest digest.Factory, output []byte) error {
	h := newDigest()
	if len(output) != h.Size() {
		panic(fmt.Sprintf("output must be %d bytes, got %d", h.Size(), len(output)))
	}
	if updateLen > 0 && len(chunkBuf) == 0 {
		panic("chunk buffer cannot be empty")
	}

	startTime := time.Now()
	total := int(updateLen)

	for offset := uint32(0); offset < updateLen; offset += uint32(len(chunkBuf)) {
		chunk := chunkBuf
		if end := uint64(offset) + uint64(len(chunk)); end > uint64(u.dfu.Size()) && offset < u.dfu.Size() {
			chunk = chunk[:u.dfu.Size()-offset]
		}
		if err := ops.read(u.dfu, offset, chunk); err != nil {
			return err
		}

		n := len(chunk)
		if remaining := updateLen - offset; uint32(n) > remaining {
			n = int(remaining)
		}
		h.Write(chunk[:n])

		done := int(offset) + n
		u.reportProgress(Progress{
			Phase:       PhaseHashing,
			BytesDone:   done,
			TotalBytes:  total,
			Percentage:  percentage(done, total),
			ElapsedTime: time.Since(startTime),
		})
	}

	copy(output, h.Sum(nil))

	u.reportProgress(Progress{
		Phase:       PhaseComplete,
		BytesDone:   total,
		TotalBytes:  total,
		Percentage:  100,
		ElapsedTime: time.Since(startTime),
	})
	return nil
}

// verifyAndMarkUpdated arms the staged image only if its signature checks
// out. No flash write happens on any failure path.
func (u *FirmwareUpdater) verifyAndMarkUpdated(ops flashOps, publicKey, sig []byte, updateLen uint32, aligned []byte) error {
	checkAligned(ops, aligned)
	if updateLen > u.dfu.Size() {
		panic(fmt.Sprintf("update length %d exceeds dfu partition size %d", updateLen, u.dfu.Size()))
	}

	backend := u.config.Backend

	key, err := backend.ParsePublicKey(publicKey)
	if err != nil {
		u.logError("public key rejected", "backend", backend.Name(), "error", err)
		return newSignatureError(err)
	}
	parsed, err := backend.ParseSignature(sig)
	if err != nil {
		u.logError("signature rejected", "backend", backend.Name(), "error", err)
		return newSignatureError(err)
	}

	newDigest := backend.Digest()
	message := make([]byte, newDigest().Size())
	if err := u.hash(ops, updateLen, aligned, newDigest, message); err != nil {
		return err
	}

	if err := key.Verify(message, parsed); err != nil {
		u.logError("image verification failed", "backend", backend.Name(), "update_len", updateLen)
		return newSignatureError(err)
	}

	u.logInfo("image verified", "backend", backend.Name(), "update_len", updateLen)
	return u.setMagic(ops, aligned, protocol.SwapMagic)
}

// verifyBooted refuses to touch the dfu partition while a swap is pending.
func (u *FirmwareUpdater) verifyBooted(ops flashOps) error {
	state, err := u.getState(ops, make([]byte, ops.writeSize()))
	if err != nil {
		return err
	}
	if state == protocol.StateSwap {
		u.logError("refusing to modify dfu partition", "state", state.String())
		return &StateError{State: state}
	}
	return nil
}

// writeFirmware erases the span covered by data, then writes it.
func (u *FirmwareUpdater) writeFirmware(ops flashOps, offset uint32, data []byte) error {
	if len(data) < ops.eraseSize() {
		panic(fmt.Sprintf("firmware data must be at least one erase block (%d bytes), got %d", ops.eraseSize(), len(data)))
	}
	if err := u.verifyBooted(ops); err != nil {
		return err
	}

	startTime := time.Now()
	end := offset + uint32(len(data))

	u.reportProgress(Progress{
		Phase:       PhaseErasing,
		TotalBytes:  len(data),
		ElapsedTime: time.Since(startTime),
	})
	if err := ops.erase(u.dfu, offset, end); err != nil {
		return err
	}

	u.reportProgress(Progress{
		Phase:       PhaseWriting,
		TotalBytes:  len(data),
		Percentage:  50,
		ElapsedTime: time.Since(startTime),
	})
	if err := ops.write(u.dfu, offset, data); err != nil {
		return err
	}

	u.logDebug("firmware chunk written", "offset", offset, "len", len(data))
	u.reportProgress(Progress{
		Phase:       PhaseComplete,
		BytesDone:   len(data),
		TotalBytes:  len(data),
		Percentage:  100,
		ElapsedTime: time.Since(startTime),
	})
	return nil
}

func (u *FirmwareUpdater) prepareUpdate(ops flashOps) (partition.Partition, error) {
	if err := u.verifyBooted(ops); err != nil {
		return partition.Partition{}, err
	}

	startTime := time.Now()
	size := int(u.dfu.Size())

	u.reportProgress(Progress{Phase: PhaseErasing, TotalBytes: size})
	if err := ops.wipe(u.dfu); err != nil {
		return partition.Partition{}, err
	}

	u.logInfo("dfu partition erased", "dfu", u.dfu.String())
	u.reportProgress(Progress{
		Phase:       PhaseComplete,
		BytesDone:   size,
		TotalBytes:  size,
		Percentage:  100,
		ElapsedTime: time.Since(startTime),
	})
	return u.dfu, nil
}

func fill(buf []byte, v byte) {
	for i := range buf {
		buf[i] = v
	}
}

// reportProgress calls the progress callback if configured.
func (u *FirmwareUpdater) reportProgress(progress Progress) {
	if u.config.ProgressCallback != nil {
		u.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (u *FirmwareUpdater) logDebug(msg string, keysAndValues ...interface{}) {
	if u.config.Logger != nil {
		u.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (u *FirmwareUpdater) logInfo(msg string, keysAndValues ...interface{}) {
	if u.config.Logger != nil {
		u.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (u *FirmwareUpdater) logError(msg string, keysAndValues ...interface{}) {
	if u.config.Logger != nil {
		u.config.Logger.Error(msg, keysAndValues...)
	}
}
