package types_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/multiroot-io/multiroot/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestTypes(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Types test suite")
}

var _ = Describe("Error taxonomy", func() {
	It("maps every kind to its own exit code", func() {
		Expect(types.InvalidArgument.ExitCode()).To(Equal(2))
		Expect(types.ResourceBusy.ExitCode()).To(Equal(3))
		Expect(types.ExternalToolFailure.ExitCode()).To(Equal(4))
		Expect(types.MissingIdentity.ExitCode()).To(Equal(5))
		Expect(types.PartialState.ExitCode()).To(Equal(6))
		Expect(types.UnknownError.ExitCode()).To(Equal(1))
	})

	It("keeps the cause reachable through errors.Is", func() {
		cause := errors.New("mkfs exploded")
		err := types.NewError(types.ExternalToolFailure, "format", cause)
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("format"))
		Expect(err.Error()).To(ContainSubstring("mkfs exploded"))
	})

	It("reports the outermost kind of a wrapped chain", func() {
		inner := types.NewErrorf(types.MissingIdentity, "label", "no os-release")
		outer := types.NewError(types.PartialState, "provision", inner)
		Expect(types.KindOf(outer)).To(Equal(types.PartialState))
		Expect(types.ExitCode(outer)).To(Equal(6))
	})

	It("finds a kind through plain fmt wrapping", func() {
		err := fmt.Errorf("step 4: %w", types.NewErrorf(types.ResourceBusy, "mount", "busy"))
		Expect(types.KindOf(err)).To(Equal(types.ResourceBusy))
		Expect(types.ExitCode(err)).To(Equal(3))
	})

	It("treats unclassified errors as unknown", func() {
		Expect(types.KindOf(errors.New("whatever"))).To(Equal(types.UnknownError))
		Expect(types.ExitCode(errors.New("whatever"))).To(Equal(1))
		Expect(types.ExitCode(nil)).To(Equal(0))
	})
})
