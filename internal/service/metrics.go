package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// uploadsTotal 按类别统计成功落盘的文件数
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_uploads_total",
			Help: "Total number of files stored, by folder",
		},
		[]string{"folder"},
	)

	// uploadRejectionsTotal 按拒绝原因统计校验失败数
	uploadRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_upload_rejections_total",
			Help: "Total number of rejected uploads, by reason",
		},
		[]string{"reason"},
	)

	// deletesTotal 按类别统计删除数
	deletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_deletes_total",
			Help: "Total number of deleted files, by folder",
		},
		[]string{"folder"},
	)
)
