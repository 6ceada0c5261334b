package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/google/uuid"
)

const (
	// maxProbes 之后放弃线性探测，改用随机后缀保证能够终止。
	maxProbes          = 1000
	maxRandomAttempts  = 5
	randomSuffixLength = 8
)

// allocate 按确定的序列为期望文件名寻找可用名称：
// base.ext、base-1.ext、base-2.ext、……
//
// create 负责以独占方式创建文件，目标已存在时必须返回包装了
// fs.ErrExist 的错误。用独占创建本身作为冲突信号，探测和写入
// 之间不存在先查后写的竞争窗口：并发上传同名文件时至多一方拿到
// 某个名字，另一方继续探测下一个。
func allocate(desired string, create func(name string) error) (string, error) {
	base, ext := splitName(desired)

	for i := 0; i <= maxProbes; i++ {
		name := desired
		if i > 0 {
			name = fmt.Sprintf("%s-%d%s", base, i, ext)
		}

		err := create(name)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}

	// 线性序列耗尽（批量或恶意的同名上传），退化为随机后缀
	for i := 0; i < maxRandomAttempts; i++ {
		name := fmt.Sprintf("%s-%s%s", base, randomSuffix(), ext)
		err := create(name)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}

	return "", fmt.Errorf("allocate name for %q: random probes exhausted", desired)
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:randomSuffixLength]
}
