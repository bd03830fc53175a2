package updater

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-fwupdate/config"
	"github.com/moffa90/go-fwupdate/flash"
	"github.com/moffa90/go-fwupdate/partition"
	"github.com/moffa90/go-fwupdate/protocol"
	"github.com/moffa90/go-fwupdate/signature"
)

const (
	writeSize = 8
	eraseSize = 4096
	flashSize = 131072
)

var (
	statePart = partition.New(0, 4096)
	dfuPart   = partition.New(65536, 131072)

	errPowerLoss = errors.New("power loss")
)

func newDevice() *flash.MemFlash {
	return flash.NewMemFlash(flashSize, eraseSize, writeSize)
}

func newUpdater(opts ...Option) *FirmwareUpdater {
	return New(dfuPart, statePart, opts...)
}

func scratch() []byte {
	return make([]byte, writeSize)
}

func magicField(v byte) []byte {
	return bytes.Repeat([]byte{v}, writeSize)
}

// testImage never contains a zero byte, so any byte can be tampered with
// by clearing bits.
func testImage(n int) []byte {
	img := make([]byte, n)
	for i := range img {
		img[i] = byte(i%251) + 1
	}
	return img
}

// stage writes image into the dfu partition one erase block at a time.
func stage(t *testing.T, u *FirmwareUpdater, dev flash.NorFlash, image []byte) {
	t.Helper()

	padded := append([]byte(nil), image...)
	for len(padded)%eraseSize != 0 {
		padded = append(padded, flash.EraseValue)
	}
	for off := 0; off < len(padded); off += eraseSize {
		require.NoError(t, u.WriteFirmwareBlocking(dev, uint32(off), padded[off:off+eraseSize]))
	}
}

func testSigner() signature.Signer {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(0xA0 + i)
	}
	return signature.NewEd25519Signer(ed25519.NewKeyFromSeed(seed))
}

func signImage(t *testing.T, s signature.Signer, image []byte) []byte {
	t.Helper()
	sum := sha512.Sum512(image)
	sig, err := s.Sign(sum[:])
	require.NoError(t, err)
	return sig
}

func TestFreshStateIsBoot(t *testing.T) {
	u := newUpdater()
	dev := newDevice()

	state, err := u.GetStateBlocking(dev, scratch())
	require.NoError(t, err)
	assert.Equal(t, protocol.StateBoot, state)

	snap, err := u.InspectBlocking(dev, scratch())
	require.NoError(t, err)
	assert.Equal(t, Snapshot{State: protocol.StateBoot, Magic: protocol.MagicErased}, snap)
}

func TestSetMagicSequence(t *testing.T) {
	u := newUpdater()
	dev := newDevice()

	require.NoError(t, u.MarkUpdatedBlocking(dev, scratch()))

	assert.Equal(t, []flash.Op{
		{Kind: flash.OpRead, Offset: 0, Len: writeSize},
		{Kind: flash.OpRead, Offset: writeSize, Len: writeSize},
		{Kind: flash.OpWrite, Offset: writeSize, Len: writeSize},
		{Kind: flash.OpErase, Offset: 0, Len: 4096},
		{Kind: flash.OpWrite, Offset: 0, Len: writeSize},
	}, dev.Ops())

	assert.Equal(t, magicField(protocol.SwapMagic), dev.Bytes(0, writeSize))
	assert.Equal(t, magicField(protocol.EraseValue), dev.Bytes(writeSize, 2*writeSize))
}

func TestSetMagicIdempotent(t *testing.T) {
	u := newUpdater()
	dev := newDevice()
	aligned := scratch()

	require.NoError(t, u.MarkBootedBlocking(dev, aligned))
	dev.ResetOps()

	require.NoError(t, u.MarkBootedBlocking(dev, aligned))
	assert.Zero(t, dev.Count(flash.OpWrite))
	assert.Zero(t, dev.Count(flash.OpErase))
	assert.Equal(t, 1, dev.Count(flash.OpRead))

	require.NoError(t, u.MarkUpdatedBlocking(dev, aligned))
	dev.ResetOps()

	require.NoError(t, u.MarkUpdatedBlocking(dev, aligned))
	assert.Zero(t, dev.Count(flash.OpWrite))
	assert.Zero(t, dev.Count(flash.OpErase))
}

func TestSetMagicTransitions(t *testing.T) {
	torn := magicField(protocol.EraseValue)
	copy(torn, []byte{protocol.SwapMagic, protocol.SwapMagic, protocol.SwapMagic})

	priors := []struct {
		name  string
		field []byte
	}{
		{"erased", nil},
		{"boot", magicField(protocol.BootMagic)},
		{"swap", magicField(protocol.SwapMagic)},
		{"revert", magicField(protocol.RevertMagic)},
		{"dfu", magicField(protocol.DFUDetachMagic)},
		{"torn", torn},
	}

	targets := []struct {
		name  string
		magic byte
		mark  func(*FirmwareUpdater, flash.NorFlash, []byte) error
		state protocol.State
		kind  protocol.Magic
	}{
		{"mark updated", protocol.SwapMagic, (*FirmwareUpdater).MarkUpdatedBlocking, protocol.StateSwap, protocol.MagicSwap},
		{"mark booted", protocol.BootMagic, (*FirmwareUpdater).MarkBootedBlocking, protocol.StateBoot, protocol.MagicBoot},
		{"mark dfu", protocol.DFUDetachMagic, (*FirmwareUpdater).MarkDFUBlocking, protocol.StateBoot, protocol.MagicDFUDetach},
	}

	for _, prior := range priors {
		for _, target := range targets {
			t.Run(prior.name+"/"+target.name, func(t *testing.T) {
				u := newUpdater()
				dev := newDevice()
				aligned := scratch()

				if prior.field != nil {
					require.NoError(t, dev.Write(0, prior.field))
				}
				dev.ResetOps()

				require.NoError(t, target.mark(u, dev, aligned))

				if bytes.Equal(prior.field, magicField(target.magic)) {
					assert.Zero(t, dev.Count(flash.OpWrite), "no writes when already at target")
				}

				state, err := u.GetStateBlocking(dev, aligned)
				require.NoError(t, err)
				assert.Equal(t, target.state, state)

				snap, err := u.InspectBlocking(dev, aligned)
				require.NoError(t, err)
				assert.Equal(t, target.kind, snap.Magic)
				assert.False(t, snap.Dirty)
			})
		}
	}
}

func TestSetMagicCrashRecovery(t *testing.T) {
	// Fail the n-th device operation of a fresh MarkUpdated, then retry.
	for n := 1; n <= 5; n++ {
		t.Run(fmt.Sprintf("fail op %d", n), func(t *testing.T) {
			u := newUpdater()
			dev := newDevice()
			aligned := scratch()

			count := 0
			dev.SetFault(func(op flash.Op) error {
				count++
				if count == n {
					return errPowerLoss
				}
				return nil
			})

			err := u.MarkUpdatedBlocking(dev, aligned)
			require.Error(t, err)
			assert.True(t, IsFlashError(err))
			assert.ErrorIs(t, err, errPowerLoss)

			dev.SetFault(nil)
			dev.ResetOps()

			require.NoError(t, u.MarkUpdatedBlocking(dev, aligned))

			state, err := u.GetStateBlocking(dev, aligned)
			require.NoError(t, err)
			assert.Equal(t, protocol.StateSwap, state)
			assert.Equal(t, magicField(protocol.EraseValue), dev.Bytes(writeSize, 2*writeSize))
		})
	}
}

func TestSetMagicResumesWithoutRewritingProgress(t *testing.T) {
	u := newUpdater()
	dev := newDevice()
	aligned := scratch()

	dev.SetFault(func(op flash.Op) error {
		if op.Kind == flash.OpErase {
			return errPowerLoss
		}
		return nil
	})

	err := u.MarkUpdatedBlocking(dev, aligned)
	require.Error(t, err)

	snap, err := u.InspectBlocking(dev, aligned)
	require.NoError(t, err)
	assert.True(t, snap.Dirty, "progress field must be dirty after the interrupted transition")
	assert.Equal(t, protocol.MagicErased, snap.Magic)

	dev.SetFault(nil)
	dev.ResetOps()

	logger := &recordingLogger{}
	u = newUpdater(WithLogger(logger))
	require.NoError(t, u.MarkUpdatedBlocking(dev, aligned))

	for _, op := range dev.Ops() {
		if op.Kind == flash.OpWrite {
			assert.NotEqual(t, uint32(writeSize), op.Offset, "progress field rewritten on resume")
		}
	}
	assert.Contains(t, logger.infos, "resuming interrupted state transition")

	state, err := u.GetStateBlocking(dev, aligned)
	require.NoError(t, err)
	assert.Equal(t, protocol.StateSwap, state)
}

func TestHash(t *testing.T) {
	u := newUpdater()
	dev := newDevice()
	image := testImage(10000)
	stage(t, u, dev, image)

	tests := []struct {
		name      string
		updateLen uint32
		chunk     int
	}{
		{"empty", 0, 64},
		{"single partial chunk", 7, 64},
		{"exact chunks", 960, 96},
		{"chunks plus partial", 1000, 96},
		{"crosses erase blocks", 10000, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]byte, sha256.Size)
			require.NoError(t, u.HashBlocking(dev, tt.updateLen, make([]byte, tt.chunk), sha256.New, out))

			want := sha256.Sum256(image[:tt.updateLen])
			assert.Equal(t, want[:], out)
		})
	}
}

func TestHashSHA1EndToEnd(t *testing.T) {
	u := newUpdater()
	dev := newDevice()

	update := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	toWrite := make([]byte, 4096)
	copy(toWrite, update)

	require.NoError(t, u.WriteFirmwareBlocking(dev, 0, toWrite))

	out := make([]byte, sha1.Size)
	require.NoError(t, u.HashBlocking(dev, uint32(len(update)), make([]byte, 2), sha1.New, out))

	want := sha1.Sum(update)
	assert.Equal(t, want[:], out)
}

func TestHashReportsProgress(t *testing.T) {
	var phases []string
	var done []int
	u := newUpdater(WithProgressCallback(func(p Progress) {
		phases = append(phases, p.Phase)
		done = append(done, p.BytesDone)
	}))
	dev := newDevice()

	out := make([]byte, sha256.Size)
	require.NoError(t, u.HashBlocking(dev, 250, make([]byte, 100), sha256.New, out))

	assert.Equal(t, []string{PhaseHashing, PhaseHashing, PhaseHashing, PhaseComplete}, phases)
	assert.Equal(t, []int{100, 200, 250, 250}, done)
}

func TestHashPreconditions(t *testing.T) {
	u := newUpdater()
	dev := newDevice()

	assert.Panics(t, func() {
		_ = u.HashBlocking(dev, 16, make([]byte, 8), sha256.New, make([]byte, 20))
	}, "output size must match the digest")

	assert.Panics(t, func() {
		_ = u.HashBlocking(dev, 16, nil, sha256.New, make([]byte, sha256.Size))
	}, "empty chunk buffer")
}

func TestVerifyAndMarkUpdated(t *testing.T) {
	signer := testSigner()
	image := testImage(5000)

	u := newUpdater(WithBackend(signature.Ed25519{}))
	dev := newDevice()
	stage(t, u, dev, image)

	require.NoError(t, u.VerifyAndMarkUpdatedBlocking(dev, signer.PublicKey(), signImage(t, signer, image), uint32(len(image)), scratch()))

	state, err := u.GetStateBlocking(dev, scratch())
	require.NoError(t, err)
	assert.Equal(t, protocol.StateSwap, state)
}

func TestVerifyRejectsTamperedImage(t *testing.T) {
	signer := testSigner()
	image := testImage(5000)
	sig := signImage(t, signer, image)

	for _, pos := range []int{0, 2500, 4999} {
		t.Run(fmt.Sprintf("byte %d", pos), func(t *testing.T) {
			u := newUpdater(WithBackend(signature.Ed25519{}))
			dev := newDevice()
			stage(t, u, dev, image)
			require.NoError(t, u.MarkBootedBlocking(dev, scratch()))

			// Clear every bit of one image byte in place.
			group := pos - pos%writeSize
			mask := magicField(flash.EraseValue)
			mask[pos-group] = 0x00
			require.NoError(t, dev.Write(dfuPart.From+uint32(group), mask))

			before := dev.Bytes(statePart.From, statePart.To)
			dev.ResetOps()

			err := u.VerifyAndMarkUpdatedBlocking(dev, signer.PublicKey(), sig, uint32(len(image)), scratch())
			require.Error(t, err)
			assert.True(t, IsSignatureError(err))
			assert.False(t, IsFlashError(err))

			var sigErr *SignatureError
			require.ErrorAs(t, err, &sigErr)
			assert.Equal(t, ReasonVerification, sigErr.Reason)

			assert.Zero(t, dev.Count(flash.OpWrite))
			assert.Zero(t, dev.Count(flash.OpErase))
			assert.Equal(t, before, dev.Bytes(statePart.From, statePart.To))
		})
	}
}

func TestVerifySignatureErrors(t *testing.T) {
	signer := testSigner()
	image := testImage(eraseSize)
	sig := signImage(t, signer, image)

	tests := []struct {
		name    string
		backend signature.Backend
		key     []byte
		sig     []byte
		reason  SignatureReason
	}{
		{"no backend", nil, signer.PublicKey(), sig, ReasonNoBackend},
		{"explicit none", signature.None{}, signer.PublicKey(), sig, ReasonNoBackend},
		{"short key", signature.Ed25519{}, signer.PublicKey()[:31], sig, ReasonMalformedKey},
		{"short signature", signature.Ed25519{}, signer.PublicKey(), sig[:63], ReasonMalformedSignature},
		{"wrong key type", signature.ECDSAP256{}, signer.PublicKey(), sig, ReasonMalformedKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newUpdater(WithBackend(tt.backend))
			dev := newDevice()
			stage(t, u, dev, image)
			dev.ResetOps()

			err := u.VerifyAndMarkUpdatedBlocking(dev, tt.key, tt.sig, uint32(len(image)), scratch())

			var sigErr *SignatureError
			require.ErrorAs(t, err, &sigErr)
			assert.Equal(t, tt.reason, sigErr.Reason)
			assert.Empty(t, dev.Ops(), "rejected inputs must not touch flash")
		})
	}
}

func TestVerifyPreconditions(t *testing.T) {
	u := newUpdater(WithBackend(signature.Ed25519{}))
	dev := newDevice()
	signer := testSigner()

	assert.Panics(t, func() {
		_ = u.VerifyAndMarkUpdatedBlocking(dev, signer.PublicKey(), make([]byte, 64), dfuPart.Size()+1, scratch())
	})
	assert.Panics(t, func() {
		_ = u.VerifyAndMarkUpdatedBlocking(dev, signer.PublicKey(), make([]byte, 64), 16, make([]byte, 4))
	})
	assert.Panics(t, func() {
		_, _ = u.GetStateBlocking(dev, make([]byte, writeSize+1))
	})
}

func TestWriteFirmware(t *testing.T) {
	u := newUpdater()
	dev := newDevice()

	first := bytes.Repeat([]byte{0x0F}, eraseSize)
	second := bytes.Repeat([]byte{0xF0}, eraseSize)

	require.NoError(t, u.WriteFirmwareBlocking(dev, eraseSize, first))
	require.NoError(t, u.WriteFirmwareBlocking(dev, eraseSize, second))

	got := make([]byte, eraseSize)
	require.NoError(t, u.ReadDFUBlocking(dev, eraseSize, got))
	assert.Equal(t, second, got, "region must be erased before it is rewritten")

	assert.Panics(t, func() {
		_ = u.WriteFirmwareBlocking(dev, 0, make([]byte, eraseSize-1))
	})
}

func TestWriteFirmwareOutOfBounds(t *testing.T) {
	u := newUpdater()
	dev := newDevice()

	err := u.WriteFirmwareBlocking(dev, dfuPart.Size()-eraseSize, make([]byte, 2*eraseSize))

	var flashErr *FlashError
	require.ErrorAs(t, err, &flashErr)
	assert.Equal(t, flash.KindOutOfBounds, flashErr.Kind)
	assert.Zero(t, dev.Count(flash.OpErase))
	assert.Zero(t, dev.Count(flash.OpWrite))
}

func TestStagingRefusedWhileSwapPending(t *testing.T) {
	u := newUpdater()
	dev := newDevice()
	image := testImage(eraseSize)
	stage(t, u, dev, image)
	require.NoError(t, u.MarkUpdatedBlocking(dev, scratch()))
	dev.ResetOps()

	err := u.WriteFirmwareBlocking(dev, 0, bytes.Repeat([]byte{0x55}, eraseSize))
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, protocol.StateSwap, stateErr.State)

	_, err = u.PrepareUpdateBlocking(dev)
	assert.True(t, IsStateError(err))
	assert.False(t, IsFlashError(err))

	assert.Zero(t, dev.Count(flash.OpErase))
	assert.Zero(t, dev.Count(flash.OpWrite))
	assert.Equal(t, image, dev.Bytes(dfuPart.From, dfuPart.From+eraseSize))
}

func TestStagingAllowedOutsideSwap(t *testing.T) {
	tests := []struct {
		name string
		mark func(*FirmwareUpdater, flash.NorFlash, []byte) error
	}{
		{"booted", (*FirmwareUpdater).MarkBootedBlocking},
		{"dfu detach", (*FirmwareUpdater).MarkDFUBlocking},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newUpdater()
			dev := newDevice()
			require.NoError(t, u.MarkUpdatedBlocking(dev, scratch()))
			require.NoError(t, tt.mark(u, dev, scratch()))

			require.NoError(t, u.WriteFirmwareBlocking(dev, 0, testImage(eraseSize)))
			_, err := u.PrepareUpdateBlocking(dev)
			require.NoError(t, err)
		})
	}
}

func TestPrepareUpdate(t *testing.T) {
	u := newUpdater()
	dev := newDevice()
	stage(t, u, dev, testImage(3*eraseSize))

	p, err := u.PrepareUpdateBlocking(dev)
	require.NoError(t, err)
	assert.Equal(t, dfuPart, p)
	assert.Equal(t, bytes.Repeat([]byte{flash.EraseValue}, int(dfuPart.Size())), dev.Bytes(dfuPart.From, dfuPart.To))

	// The returned partition accepts bulk writes without further erases.
	dev.ResetOps()
	require.NoError(t, p.WriteBlocking(dev, 0, testImage(64)))
	assert.Zero(t, dev.Count(flash.OpErase))
}

func TestFlashErrorsPassThrough(t *testing.T) {
	u := newUpdater()
	dev := newDevice()
	dev.SetFault(func(op flash.Op) error { return errPowerLoss })

	_, err := u.GetStateBlocking(dev, scratch())

	var flashErr *FlashError
	require.ErrorAs(t, err, &flashErr)
	assert.Equal(t, "read", flashErr.Op)
	assert.Equal(t, flash.KindOther, flashErr.Kind)
	assert.ErrorIs(t, err, errPowerLoss)
	assert.Contains(t, err.Error(), "flash read failed")
}

func TestNewPanicsOnOverlap(t *testing.T) {
	assert.Panics(t, func() {
		New(partition.New(0, 8192), partition.New(4096, 12288))
	})
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{
		Flash: config.FlashConfig{Size: flashSize, WriteSize: writeSize, EraseSize: eraseSize},
		Partitions: config.Layout{
			State: config.Range{From: statePart.From, To: statePart.To},
			DFU:   config.Range{From: dfuPart.From, To: dfuPart.To},
		},
		Signature: config.SignatureConfig{Backend: "ed25519"},
	}

	u, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, dfuPart, u.DFUPartition())
	assert.Equal(t, statePart, u.StatePartition())
	assert.Equal(t, signature.NameEd25519, u.Backend().Name())

	cfg.Signature.Backend = ""
	u, err = NewFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, signature.NameNone, u.Backend().Name())

	cfg.Partitions.DFU.From = 0
	_, err = NewFromConfig(cfg)
	assert.Error(t, err)
}

type recordingLogger struct {
	debugs, infos, errors []string
}

func (l *recordingLogger) Debug(msg string, _ ...interface{}) { l.debugs = append(l.debugs, msg) }
func (l *recordingLogger) Info(msg string, _ ...interface{})  { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Error(msg string, _ ...interface{}) { l.errors = append(l.errors, msg) }
