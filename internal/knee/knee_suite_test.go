package knee_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestKnee(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Knee Controller Suite")
}
