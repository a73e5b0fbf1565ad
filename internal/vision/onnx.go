package vision

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXModel runs an exported classifier through ONNX Runtime. The input and
// output tensors are bound to the session once, so Run calls are serialized.
type ONNXModel struct {
	mu sync.Mutex

	spec    InputSpec
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// LoadONNXModel initializes the runtime and loads modelPath eagerly. A
// dynamic batch dimension is pinned to 1.
func LoadONNXModel(modelPath, onnxLibPath string) (*ONNXModel, error) {
	if onnxLibPath != "" {
		ort.SetSharedLibraryPath(onnxLibPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnx init environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("onnx model has no inputs or outputs")
	}

	inputShape := pinBatch(inputs[0].Dimensions)
	outputShape := pinBatch(outputs[0].Dimensions)

	spec, err := SpecFromShape(inputShape)
	if err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("onnx new input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("onnx new output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		outputTensor.Destroy()
		inputTensor.Destroy()
		return nil, fmt.Errorf("onnx new session: %w", err)
	}

	return &ONNXModel{
		spec:    spec,
		session: session,
		input:   inputTensor,
		output:  outputTensor,
	}, nil
}

func pinBatch(shape ort.Shape) ort.Shape {
	pinned := shape.Clone()
	if len(pinned) > 0 && pinned[0] <= 0 {
		pinned[0] = 1
	}
	return pinned
}

func (m *ONNXModel) Input() InputSpec {
	return m.spec
}

func (m *ONNXModel) Infer(input []float32) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inData := m.input.GetData()
	if len(inData) != len(input) {
		return nil, fmt.Errorf("input tensor size %d != preprocessed %d", len(inData), len(input))
	}
	copy(inData, input)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	out := m.output.GetData()
	probs := make([]float32, len(out))
	copy(probs, out)
	return probs, nil
}

func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var closeErr error
	if m.session != nil {
		closeErr = m.session.Destroy()
	}
	if m.input != nil {
		if err := m.input.Destroy(); err != nil {
			closeErr = err
		}
	}
	if m.output != nil {
		if err := m.output.Destroy(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
