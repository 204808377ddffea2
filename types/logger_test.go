package types_test

import (
	"bytes"

	"github.com/multiroot-io/multiroot/types"
	"github.com/rs/zerolog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logger", func() {
	It("writes structured entries to the buffer", func() {
		var b bytes.Buffer
		log := types.NewBufferLogger(&b)
		log.Infof("provisioning %s", "/dev/sdb2")
		Expect(b.String()).To(ContainSubstring(`"message":"provisioning /dev/sdb2"`))
		Expect(b.String()).To(ContainSubstring(`"level":"info"`))
	})

	It("honors the level", func() {
		var b bytes.Buffer
		log := types.NewBufferLogger(&b)
		log.SetLevel("warn")
		log.Debug("hidden")
		log.Warn("shown")
		Expect(b.String()).ToNot(ContainSubstring("hidden"))
		Expect(b.String()).To(ContainSubstring("shown"))
	})

	It("exposes the active level", func() {
		var b bytes.Buffer
		log := types.NewBufferLogger(&b)
		log.SetLevel("debug")
		Expect(log.GetLevel()).To(Equal(zerolog.DebugLevel))
		Expect(log.IsDebug()).To(BeTrue())
	})
})
