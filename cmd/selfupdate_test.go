package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSelfUpdateCmd(t *testing.T) {
	selfUpdateCmd := newSelfUpdateCmd()

	assert.Equal(t, "self-update", selfUpdateCmd.Use)
	assert.NotEmpty(t, selfUpdateCmd.Short)
	assert.NotEmpty(t, selfUpdateCmd.Long)
	assert.NotNil(t, selfUpdateCmd.RunE)
}

func TestRunSelfUpdateRefusesDevBuilds(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	for _, v := range []string{"", "dev"} {
		rootCmd.Version = v
		err := runSelfUpdate(nil, nil)
		assert.ErrorIs(t, err, errDevVersion, "version %q", v)
	}
}

func TestGithubRepoSlug(t *testing.T) {
	assert.Equal(t, "arenahub/arena", githubRepoSlug)
}
