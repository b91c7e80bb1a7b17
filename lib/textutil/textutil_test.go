package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNarrow(t *testing.T) {
	require.Equal(t, "ロト6 第2062回", Narrow("ロト６　第２０６２回"))
	require.Equal(t, "(08)", Narrow("（０８）"))
	require.Equal(t, "本数字", Narrow("本数字"))
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "第2062回", Normalize("\n\t 第２０６２回 \n"))
	require.Equal(t, "ボーナス 数字", Normalize("ボーナス \n  数字"))
	require.Equal(t, "ボーナス数字", NormalizeLabel(" ボーナス　数字 "))
}

func TestLines(t *testing.T) {
	text := "\ufeffA,B\r\n\r\n  第2062回ロト６  \r\nC\n"
	require.Equal(t, []string{"A,B", "第2062回ロト６", "C"}, Lines(text))
}
