// =============================================================================
// 📦 测试数据工厂 - 工作流测试数据
// =============================================================================
// 提供预定义的工作流和序列化样本，用于测试
// =============================================================================
package fixtures

import (
	"github.com/BaSui01/imageflow/workflow"
)

// =============================================================================
// 🎨 工作流工厂
// =============================================================================

// PortraitWorkflow 返回单步人像工作流
func PortraitWorkflow() workflow.Workflow {
	return workflow.Workflow{
		Name: "Creative Portrait",
		Steps: []workflow.Step{
			{Title: "Upscale Image", Prompt: "Upscale the image to 4k."},
		},
	}
}

// UpscaleWorkflow 返回最小的单步放大工作流
func UpscaleWorkflow() workflow.Workflow {
	return workflow.Workflow{
		Name: "Portrait",
		Steps: []workflow.Step{
			{Title: "Upscale", Prompt: "Increase resolution."},
		},
	}
}

// PopArtWorkflow 返回两步风格化工作流
func PopArtWorkflow() workflow.Workflow {
	return workflow.Workflow{
		Name: "Creative Portrait",
		Steps: []workflow.Step{
			{Title: "Upscale Image", Prompt: "Upscale the image to 4k resolution."},
			{Title: "Add Pop-Art Style", Prompt: "Apply a vibrant pop-art style to the image."},
		},
	}
}

// PipelineWorkflow 返回 n 步流水线工作流，步骤标题依次编号
func PipelineWorkflow(n int) workflow.Workflow {
	wf := workflow.Workflow{Name: "Pipeline"}
	for i := 0; i < n; i++ {
		wf.Steps = append(wf.Steps, workflow.Step{
			Title:  "Step " + string(rune('A'+i)),
			Prompt: "Apply transformation " + string(rune('A'+i)) + ".",
		})
	}
	return wf
}

// =============================================================================
// 📄 序列化样本
// =============================================================================

// CompiledPortraitJSON 是模型结构化输出的典型样本，与 PopArtWorkflow 等价
const CompiledPortraitJSON = `{
    "name": "Creative Portrait",
    "steps": [
        {
            "title": "Upscale Image",
            "prompt": "Upscale the image to 4k resolution."
        },
        {
            "title": "Add Pop-Art Style",
            "prompt": "Apply a vibrant pop-art style to the image."
        }
    ]
}`

// WrongTypesJSON 类型全错的载荷：name 为数字且缺少 steps，
// 校验必须同时报告两处问题
const WrongTypesJSON = `{"name": 1}`

// MissingNameJSON 缺少 name 字段的载荷
const MissingNameJSON = `{"steps": []}`
